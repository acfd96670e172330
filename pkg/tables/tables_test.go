package tables_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/pkg/tables"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Batch   No. ", "Batch No."},
		{"Signed: ________", "Signed:"},
		{"Line\none\t two", "Line one two"},
		{"___", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.Clean(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		grid tables.Grid
		want tables.Kind
	}{
		{
			name: "single key value row",
			grid: tables.Grid{{"Batch No.", "12345"}},
			want: tables.KindKeyValue,
		},
		{
			name: "key value with empty spacer cells",
			grid: tables.Grid{
				{"Product", "", "Cefixime Tablets"},
				{"", "", ""},
				{"Batch Size", "1,00,000 Tablets", ""},
			},
			want: tables.KindKeyValue,
		},
		{
			name: "matrix",
			grid: tables.Grid{
				{"Ingredient", "Std Qty", "Actual Qty"},
				{"Hypromellose", "0.30", "0.30"},
				{"Talc", "1.20", "1.19"},
				{"Lactose", "12.0", ""},
			},
			want: tables.KindMatrix,
		},
		{
			name: "matrix with one ragged row",
			grid: tables.Grid{
				{"Step", "Temp", "Speed", "Time"},
				{"Mixing", "25C", "20 rpm", "10 min"},
				{"Drying", "60C", "", "2 h"},
				{"Milling", "", "1500 rpm", "5 min"},
				{"note"},
			},
			want: tables.KindMatrix,
		},
		{
			name: "header too narrow",
			grid: tables.Grid{
				{"Step", "", ""},
				{"Mixing", "25C", "20 rpm"},
			},
			want: tables.KindIrregular,
		},
		{
			name: "too many ragged rows",
			grid: tables.Grid{
				{"A", "B", "C"},
				{"1", "2"},
				{"1", "2", "3", "4"},
				{"1", "2", "3"},
			},
			want: tables.KindIrregular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := tables.Classify(tt.grid)
			assert.Equal(t, tt.want, first.Kind)
			assert.Equal(t, first, tables.Classify(tt.grid), "classification must be deterministic")
		})
	}
}

func TestClassifyKeyValuePairs(t *testing.T) {
	block := tables.Classify(tables.Grid{{"Batch No.", "12345"}})
	require.Equal(t, tables.KindKeyValue, block.Kind)
	assert.Equal(t, []tables.Pair{{Key: "Batch No.", Value: "12345"}}, block.Pairs)
	assert.Equal(t, []string{"- Batch No.: 12345"}, tables.Format(block))
}

func TestClassifyMatrixPadsRows(t *testing.T) {
	block := tables.Classify(tables.Grid{
		{"Ingredient", "", "Qty", "Lot"},
		{"Talc", "x", "1.2", "L0", "extra"},
		{"Lactose"},
		{"___", "", "", ""},
		{"Starch", "y", "3", "L1"},
		{"Talc", "x", "1.2", "L2"},
		{"Talc", "x", "1.2", "L3"},
		{"Talc", "x", "1.2", "L4"},
	})

	require.Equal(t, tables.KindMatrix, block.Kind)
	assert.Equal(t, []string{"Ingredient", "Col_1", "Qty", "Lot"}, block.Headers)
	assert.Equal(t, [][]string{
		{"Talc", "x", "1.2", "L0"},
		{"Lactose", "", "", ""},
		{"Starch", "y", "3", "L1"},
		{"Talc", "x", "1.2", "L2"},
		{"Talc", "x", "1.2", "L3"},
		{"Talc", "x", "1.2", "L4"},
	}, block.Rows)
}

func TestFormat(t *testing.T) {
	t.Run("label claim expands", func(t *testing.T) {
		block := tables.Block{Kind: tables.KindKeyValue, Pairs: []tables.Pair{
			{Key: "Label claim", Value: "Export: Each tablet contains 400 mg Domestic: 200 mg"},
		}}
		assert.Equal(t, []string{
			"- Label Claim:",
			"    • Export: Each tablet contains 400 mg",
			"    • Domestic: 200 mg",
		}, tables.Format(block))
	})

	t.Run("label claim without sub values", func(t *testing.T) {
		block := tables.Block{Kind: tables.KindKeyValue, Pairs: []tables.Pair{
			{Key: "LABEL CLAIM", Value: "400 mg"},
		}}
		assert.Equal(t, []string{"- Label Claim:"}, tables.Format(block))
	})

	t.Run("matrix", func(t *testing.T) {
		block := tables.Block{
			Kind:    tables.KindMatrix,
			Headers: []string{"Ingredient", "Std Qty", "Actual"},
			Rows:    [][]string{{"Talc", "1.20", ""}},
		}
		assert.Equal(t, []string{
			"- Ingredient",
			"- Std Qty",
			"- Actual",
			"- Talc:",
			"    • Std Qty: 1.20",
		}, tables.Format(block))
	})

	t.Run("irregular", func(t *testing.T) {
		block := tables.Classify(tables.Grid{
			{"Remarks", "", "", ""},
			{"Line cleared", "ok", "QA", ""},
			{"a", "b", "c", "d", "e"},
		})
		require.Equal(t, tables.KindIrregular, block.Kind)
		assert.Equal(t, []string{
			"- Remarks",
			"- Line cleared | ok | QA",
			"- a | b | c | d | e",
		}, tables.Format(block))
	})
}

func TestRenderPage(t *testing.T) {
	t.Run("no tables", func(t *testing.T) {
		assert.Equal(t, []string{"Page 3:", tables.NoTables, ""}, tables.RenderPage(3, nil))
	})

	t.Run("drops empty rows before classifying", func(t *testing.T) {
		lines := tables.RenderPage(1, []tables.Grid{
			{{"", ""}, {"Batch No.", "B-01"}},
		})
		assert.Equal(t, []string{"Page 1:", "- Batch No.: B-01", ""}, lines)
	})
}
