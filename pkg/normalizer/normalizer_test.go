package normalizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "two numbered records",
			lines: []string{"- 16:", "• Ingredient: Hypromellose", "- 4:", "• Weight: 200mg"},
			want:  "Ingredient: Hypromellose\n\nWeight: 200mg\n",
		},
		{
			name: "page headers and blank lines are skipped",
			lines: []string{
				"Page 1:",
				"- Batch No.: B-01",
				"",
				"- Product Name: Cefixime Tablets USP 400 mg",
				"",
			},
			want: "Batch No.: B-01\nProduct Name: Cefixime Tablets USP 400 mg\n",
		},
		{
			name:  "key only bullets wait for a value",
			lines: []string{"- Ingredient", "- Line cleared | ok | QA"},
			want:  "Ingredient: \nLine cleared | ok | QA: \n",
		},
		{
			name:  "later duplicate overwrites in place",
			lines: []string{"- Talc:", "    • Std Qty: 1.20", "• Talc: 1.19", "• Std Qty: 1.25"},
			want:  "Talc: 1.19\nStd Qty: 1.25\n",
		},
		{
			name:  "continuation fragment inside an open record",
			lines: []string{"- 1:", "• Sieve: 40#", "Sifter • Mesh: 40", "- 2:"},
			want:  "Sieve: 40#\nMesh: 40\n",
		},
		{
			name:  "leading marker does not emit an empty record",
			lines: []string{"- 1:", "- 2:"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.lines))
		})
	}
}

func TestNormalizeIsStableOnCleanText(t *testing.T) {
	first := Normalize([]string{
		"- 1:",
		"• Ingredient: Hypromellose",
		"• Std Qty: 0.30",
		"- Label Claim:",
		"    • Export: 400 mg",
		"- 2:",
		"• Weight: 200mg",
	})

	second := Normalize(strings.Split(first, "\n"))

	assert.Equal(t, nonBlank(first), nonBlank(second))
}

func nonBlank(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func TestRecord(t *testing.T) {
	r := NewRecord()
	r.Set("b", "1")
	r.Set("a", "2")
	r.Set("b", "3")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"b: 3", "a: 2"}, r.Lines())
}

func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "extracted.txt")
	out := filepath.Join(dir, "cleaned.txt")
	require.NoError(t, os.WriteFile(in, []byte("- 1:\n• Batch No.: 12345\n"), 0644))

	require.NoError(t, NormalizeFile(in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Batch No.: 12345\n", string(data))
}

func TestNormalizeFileMissingInput(t *testing.T) {
	err := NormalizeFile(filepath.Join(t.TempDir(), "missing.txt"), filepath.Join(t.TempDir(), "out.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
