package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/pkg/metrics"
)

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.Stage("extract", false)
	m.Stage("extract", true)
	m.Stage("extract", true)
	m.Chunk(false)
	m.Finding(true)
	m.ObserveCall("generate", 1500*time.Millisecond, nil)
	m.ObserveCall("embed", time.Second, errors.New("boom"))

	count, err := testutil.GatherAndCount(m.Registry, "bmrcheck_stage_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry, "bmrcheck_ai_call_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.Chunk(true)

	path := filepath.Join(t.TempDir(), "bmrcheck.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bmrcheck_chunks_total{outcome="degraded"} 1`)
}
