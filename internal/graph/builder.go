package graph

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/logging"
	"github.com/skelly-dev/ripple/internal/metrics"
	"github.com/skelly-dev/ripple/internal/resolve"
)

// ErrNilFacts is returned when Build is handed a nil collection. An empty,
// non-nil collection is valid and yields an empty graph.
var ErrNilFacts = errors.New("graph: nil facts collection")

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	logger       *slog.Logger
	recorder     *metrics.Recorder
	resolverOpts []resolve.Option
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithMetrics records build statistics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *buildConfig) {
		c.recorder = r
	}
}

// WithResolverOptions passes options through to the module resolver.
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(c *buildConfig) {
		c.resolverOpts = append(c.resolverOpts, opts...)
	}
}

type symbolEdgeKey struct {
	from, to int
}

// Build constructs a graph from extracted facts.
//
// Records are validated first; malformed records and edges are skipped and
// reported in Stats.Issues. The result does not depend on the order of records.
func Build(records []facts.ModuleFacts, opts ...Option) (*Graph, error) {
	if records == nil {
		return nil, ErrNilFacts
	}
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.OrDiscard(cfg.logger)
	start := time.Now()

	valid, issues := facts.Validate(records)
	g := newGraph(valid)
	g.Stats.Issues = issues
	for _, issue := range issues {
		logger.Debug("skipping malformed facts", "module", issue.Module, "symbol", issue.Symbol, "kind", issue.Kind, "reason", issue.Message)
		switch issue.Kind {
		case facts.IssueMalformedRecord:
			g.Stats.MalformedRecords++
		case facts.IssueMalformedEdge:
			g.Stats.SkippedEdges++
		}
	}

	resolver := resolve.New(facts.ModuleIDs(valid), cfg.resolverOpts...)
	g.linkModules(valid, resolver, logger)
	confidence := g.linkSymbols(valid, logger)
	g.deriveReverse()
	g.materialize(confidence)

	g.Cycles = FindCycles(g)
	g.inCycle = make([]bool, len(g.modules))
	for _, cycle := range g.Cycles {
		for _, id := range cycle {
			g.inCycle[g.moduleIndex[id]] = true
		}
	}
	g.depth = computeDepths(g)
	g.Stats.Cycles = len(g.Cycles)

	elapsed := time.Since(start)
	logger.Info("dependency graph built",
		"modules", g.Stats.Modules,
		"symbols", g.Stats.Symbols,
		"module_edges", g.Stats.ModuleEdges,
		"symbol_edges", g.Stats.SymbolEdges,
		"cycles", g.Stats.Cycles,
		"unresolved", g.Stats.UnresolvedDependencies+g.Stats.UnresolvedCalls,
		"duration", elapsed,
	)
	cfg.recorder.ObserveBuild(metrics.BuildSummary{
		Modules:                g.Stats.Modules,
		Symbols:                g.Stats.Symbols,
		ModuleEdges:            g.Stats.ModuleEdges,
		SymbolEdges:            g.Stats.SymbolEdges,
		Cycles:                 g.Stats.Cycles,
		UnresolvedDependencies: g.Stats.UnresolvedDependencies,
		UnresolvedCalls:        g.Stats.UnresolvedCalls,
		IssuesByKind:           countIssues(issues),
		Duration:               elapsed,
	})

	return g, nil
}

// newGraph creates every module and symbol node before any edge exists.
func newGraph(valid []facts.ModuleFacts) *Graph {
	g := &Graph{
		modules:     make([]ModuleNode, len(valid)),
		moduleIndex: make(map[string]int, len(valid)),
		symbolIndex: make(map[SymbolID]int),
		deps:        make([][]int, len(valid)),
		dependents:  make([][]int, len(valid)),
		Edges:       make([]Edge, 0),
		Cycles:      make([][]string, 0),
	}

	for i, record := range valid {
		g.moduleIndex[record.ModuleID] = i
		node := ModuleNode{
			ID:                   record.ModuleID,
			DeclaredDependencies: make([]string, 0),
			DeclaredSymbols:      make([]SymbolID, 0, len(record.DeclaredSymbols)),
			Dependents:           make([]string, 0),
		}
		for _, name := range record.DeclaredSymbols {
			id := SymbolID{Module: record.ModuleID, Name: name}
			g.symbolIndex[id] = len(g.symbols)
			g.symbols = append(g.symbols, SymbolNode{
				ID:         id,
				Complexity: record.SymbolComplexity[name],
				Location:   record.SymbolLocation[name],
			})
			node.DeclaredSymbols = append(node.DeclaredSymbols, id)
		}
		g.modules[i] = node
	}

	g.calls = make([][]int, len(g.symbols))
	g.calledBy = make([][]int, len(g.symbols))
	g.Stats.Modules = len(g.modules)
	g.Stats.Symbols = len(g.symbols)
	return g
}

// linkModules resolves declared dependencies into forward module edges. The
// forward lists keep declaration order until symbols are linked.
func (g *Graph) linkModules(valid []facts.ModuleFacts, resolver *resolve.Resolver, logger *slog.Logger) {
	for i, record := range valid {
		seen := make(map[int]bool, len(record.DeclaredDependencies))
		for _, ref := range record.DeclaredDependencies {
			target, ok := resolver.Resolve(record.ModuleID, ref)
			if !ok {
				g.modules[i].Unresolved = append(g.modules[i].Unresolved, ref)
				g.Stats.UnresolvedDependencies++
				logger.Debug("unresolved dependency", "module", record.ModuleID, "reference", ref)
				continue
			}
			j := g.moduleIndex[target]
			if j == i || seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
		}
	}
}

// linkSymbols resolves call edges local-first, then against symbols declared by
// direct dependencies in declaration order.
func (g *Graph) linkSymbols(valid []facts.ModuleFacts, logger *slog.Logger) map[symbolEdgeKey]float64 {
	confidence := make(map[symbolEdgeKey]float64)

	for i, record := range valid {
		callers := make([]string, 0, len(record.SymbolCallEdges))
		for caller := range record.SymbolCallEdges {
			callers = append(callers, caller)
		}
		sort.Strings(callers)

		for _, caller := range callers {
			src := g.symbolIndex[SymbolID{Module: record.ModuleID, Name: caller}]
			for _, callee := range record.SymbolCallEdges[caller] {
				dst, score, ok := g.resolveCall(i, callee)
				if !ok {
					g.Stats.UnresolvedCalls++
					logger.Debug("unresolved call", "module", record.ModuleID, "caller", caller, "callee", callee)
					continue
				}
				// Recursion is not a dependency.
				if dst == src {
					continue
				}
				key := symbolEdgeKey{from: src, to: dst}
				if _, exists := confidence[key]; exists {
					continue
				}
				if score == ConfidenceAmbiguous {
					g.Stats.AmbiguousCalls++
				}
				confidence[key] = score
				g.calls[src] = append(g.calls[src], dst)
			}
		}
	}

	for i := range g.deps {
		sort.Ints(g.deps[i])
	}
	for i := range g.calls {
		sort.Ints(g.calls[i])
	}
	return confidence
}

func (g *Graph) resolveCall(moduleIdx int, name string) (int, float64, bool) {
	module := g.modules[moduleIdx].ID
	if idx, ok := g.symbolIndex[SymbolID{Module: module, Name: name}]; ok {
		return idx, ConfidenceLocalSymbol, true
	}

	match, matches := -1, 0
	for _, dep := range g.deps[moduleIdx] {
		idx, ok := g.symbolIndex[SymbolID{Module: g.modules[dep].ID, Name: name}]
		if !ok {
			continue
		}
		if match == -1 {
			match = idx
		}
		matches++
	}
	switch {
	case matches == 0:
		return -1, 0, false
	case matches == 1:
		return match, ConfidenceImportedSymbol, true
	default:
		return match, ConfidenceAmbiguous, true
	}
}

// deriveReverse fills dependents and calledBy from the forward lists. Sources
// are visited in ascending order so every reverse list comes out sorted.
func (g *Graph) deriveReverse() {
	for i, targets := range g.deps {
		for _, j := range targets {
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	for i, targets := range g.calls {
		for _, j := range targets {
			g.calledBy[j] = append(g.calledBy[j], i)
		}
	}
}

// materialize copies index adjacency into the ID-keyed node fields and the edge list.
func (g *Graph) materialize(confidence map[symbolEdgeKey]float64) {
	for i := range g.modules {
		node := &g.modules[i]
		for _, j := range g.deps[i] {
			node.DeclaredDependencies = append(node.DeclaredDependencies, g.modules[j].ID)
			g.Edges = append(g.Edges, Edge{
				From:       node.ID,
				To:         g.modules[j].ID,
				Layer:      LayerModule,
				Kind:       EdgeDirect,
				Confidence: ConfidenceModule,
			})
		}
		for _, j := range g.dependents[i] {
			node.Dependents = append(node.Dependents, g.modules[j].ID)
		}
	}
	g.Stats.ModuleEdges = len(g.Edges)

	for i := range g.symbols {
		node := &g.symbols[i]
		node.Calls = make([]SymbolID, 0, len(g.calls[i]))
		node.CalledBy = make([]SymbolID, 0, len(g.calledBy[i]))
		for _, j := range g.calls[i] {
			node.Calls = append(node.Calls, g.symbols[j].ID)
			g.Edges = append(g.Edges, Edge{
				From:       node.ID.String(),
				To:         g.symbols[j].ID.String(),
				Layer:      LayerSymbol,
				Kind:       EdgeDirect,
				Confidence: confidence[symbolEdgeKey{from: i, to: j}],
			})
		}
		for _, j := range g.calledBy[i] {
			node.CalledBy = append(node.CalledBy, g.symbols[j].ID)
		}
	}
	g.Stats.SymbolEdges = len(g.Edges) - g.Stats.ModuleEdges
}

func countIssues(issues []facts.Issue) map[string]int {
	out := make(map[string]int)
	for _, issue := range issues {
		out[string(issue.Kind)]++
	}
	return out
}
