// Package metrics records per-run counters for graph construction and analysis.
//
// Every Recorder owns its own registry, so recorders never share state and
// tests can create as many as they like. All methods are safe on a nil
// *Recorder, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ripple"

// Recorder holds the collectors for one run.
type Recorder struct {
	registry *prometheus.Registry

	builds        prometheus.Counter
	buildDuration prometheus.Histogram
	nodes         *prometheus.GaugeVec
	edges         *prometheus.GaugeVec
	cycles        prometheus.Gauge
	unresolved    *prometheus.CounterVec
	issues        *prometheus.CounterVec
	extracted     *prometheus.CounterVec
	searchSteps   prometheus.Counter
	searchCapped  prometheus.Counter
}

// NewRecorder creates a recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		builds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_builds_total",
			Help:      "Number of dependency graphs built.",
		}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_build_duration_seconds",
			Help:      "Time spent building a dependency graph.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		nodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the most recent graph by layer.",
		}, []string{"layer"}),
		edges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the most recent graph by layer.",
		}, []string{"layer"}),
		cycles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_cycles",
			Help:      "Module cycles reported for the most recent graph.",
		}),
		unresolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_references_total",
			Help:      "References that could not be matched to a module or symbol.",
		}, []string{"kind"}),
		issues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_issues_total",
			Help:      "Malformed facts skipped during graph construction.",
		}, []string{"kind"}),
		extracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_files_total",
			Help:      "Source files processed by the extraction adapter.",
		}, []string{"status"}),
		searchSteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_path_steps_total",
			Help:      "DFS steps spent enumerating critical paths.",
		}),
		searchCapped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_path_capped_total",
			Help:      "Critical path searches truncated by a configured bound.",
		}),
	}
}

// BuildSummary is the subset of graph statistics the recorder tracks.
type BuildSummary struct {
	Modules                int
	Symbols                int
	ModuleEdges            int
	SymbolEdges            int
	Cycles                 int
	UnresolvedDependencies int
	UnresolvedCalls        int
	IssuesByKind           map[string]int
	Duration               time.Duration
}

// ObserveBuild records one completed graph build.
func (r *Recorder) ObserveBuild(s BuildSummary) {
	if r == nil {
		return
	}
	r.builds.Inc()
	r.buildDuration.Observe(s.Duration.Seconds())
	r.nodes.WithLabelValues("module").Set(float64(s.Modules))
	r.nodes.WithLabelValues("symbol").Set(float64(s.Symbols))
	r.edges.WithLabelValues("module").Set(float64(s.ModuleEdges))
	r.edges.WithLabelValues("symbol").Set(float64(s.SymbolEdges))
	r.cycles.Set(float64(s.Cycles))
	r.unresolved.WithLabelValues("dependency").Add(float64(s.UnresolvedDependencies))
	r.unresolved.WithLabelValues("call").Add(float64(s.UnresolvedCalls))
	for kind, count := range s.IssuesByKind {
		r.issues.WithLabelValues(kind).Add(float64(count))
	}
}

// ObserveExtraction records one processed file with status "ok" or "error".
func (r *Recorder) ObserveExtraction(status string) {
	if r == nil {
		return
	}
	r.extracted.WithLabelValues(status).Inc()
}

// ObserveSearch records a critical path enumeration.
func (r *Recorder) ObserveSearch(steps int, capped bool) {
	if r == nil {
		return
	}
	r.searchSteps.Add(float64(steps))
	if capped {
		r.searchCapped.Inc()
	}
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteTextfile writes all metrics in the Prometheus text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}
