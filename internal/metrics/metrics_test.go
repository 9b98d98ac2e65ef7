package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	r := NewRecorder()
	r.ObserveBuild(BuildSummary{
		Modules:                4,
		Symbols:                9,
		ModuleEdges:            3,
		SymbolEdges:            5,
		Cycles:                 1,
		UnresolvedDependencies: 2,
		IssuesByKind:           map[string]int{"malformed_edge": 1},
		Duration:               5 * time.Millisecond,
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(r.builds))
	assert.Equal(t, float64(4), testutil.ToFloat64(r.nodes.WithLabelValues("module")))
	assert.Equal(t, float64(5), testutil.ToFloat64(r.edges.WithLabelValues("symbol")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.unresolved.WithLabelValues("dependency")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.issues.WithLabelValues("malformed_edge")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSearch(120, true)
	r.ObserveExtraction("ok")

	path := filepath.Join(t.TempDir(), "ripple.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ripple_critical_path_steps_total 120")
	assert.Contains(t, string(data), "ripple_critical_path_capped_total 1")
	assert.Contains(t, string(data), `ripple_extracted_files_total{status="ok"} 1`)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveBuild(BuildSummary{})
	r.ObserveSearch(1, false)
	r.ObserveExtraction("error")
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "empty.prom")))
}
