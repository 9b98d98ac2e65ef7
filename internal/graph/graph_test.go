package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/skelly-dev/ripple/internal/facts"
)

func module(id string, deps ...string) facts.ModuleFacts {
	return facts.ModuleFacts{ModuleID: id, DeclaredDependencies: deps}
}

func withSymbols(m facts.ModuleFacts, calls map[string][]string, names ...string) facts.ModuleFacts {
	m.DeclaredSymbols = names
	m.SymbolCallEdges = calls
	return m
}

func mustBuild(t *testing.T, records []facts.ModuleFacts) *Graph {
	t.Helper()
	g, err := Build(records)
	require.NoError(t, err)
	require.NoError(t, g.CheckInvariants())
	return g
}

func TestBuildRejectsNilFacts(t *testing.T) {
	g, err := Build(nil)
	require.ErrorIs(t, err, ErrNilFacts)
	assert.Nil(t, g)
}

func TestBuildEmptyInput(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{})
	assert.Zero(t, g.NumModules())
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Cycles)
}

func TestBuildReverseEdgesMirrorForward(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		withSymbols(module("src/app.ts", "./lib/util", "./lib"), map[string][]string{
			"main": {"format", "boot"},
		}, "main"),
		withSymbols(module("src/lib/util.ts"), nil, "format"),
		withSymbols(module("src/lib/index.ts", "./util"), map[string][]string{
			"boot": {"format"},
		}, "boot"),
	})

	app, ok := g.Module("src/app.ts")
	require.True(t, ok)
	assert.Equal(t, []string{"src/lib/index.ts", "src/lib/util.ts"}, app.DeclaredDependencies)

	util, _ := g.Module("src/lib/util.ts")
	assert.Equal(t, []string{"src/app.ts", "src/lib/index.ts"}, util.Dependents)

	format, ok := g.Symbol(SymbolID{Module: "src/lib/util.ts", Name: "format"})
	require.True(t, ok)
	assert.Equal(t, []SymbolID{
		{Module: "src/app.ts", Name: "main"},
		{Module: "src/lib/index.ts", Name: "boot"},
	}, format.CalledBy)

	assert.Equal(t, 3, g.Stats.ModuleEdges)
	assert.Equal(t, 3, g.Stats.SymbolEdges)
	assert.Len(t, g.Edges, 6)
	assert.Equal(t, LayerModule, g.Edges[0].Layer)
	assert.Equal(t, LayerSymbol, g.Edges[len(g.Edges)-1].Layer)
}

func TestBuildSkipsMalformedRecord(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("a", "b"),
		module("b"),
		module("   ", "a", "b"),
	})
	assert.Equal(t, 2, g.NumModules())
	assert.Equal(t, 1, g.Stats.ModuleEdges)
	assert.Equal(t, 1, g.Stats.MalformedRecords)
}

func TestBuildDropsEdgesFromUndeclaredCaller(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		withSymbols(module("a"), map[string][]string{
			"ghost": {"run"},
			"run":   {"helper"},
		}, "run", "helper"),
	})
	assert.Equal(t, 1, g.Stats.SymbolEdges)
	assert.Equal(t, 1, g.Stats.SkippedEdges)
}

func TestBuildIsOrderIndependent(t *testing.T) {
	records := []facts.ModuleFacts{
		withSymbols(module("a", "b", "c"), map[string][]string{"run": {"shared", "onlyC"}}, "run"),
		withSymbols(module("b", "c"), map[string][]string{"shared": {"onlyC"}}, "shared"),
		withSymbols(module("c", "a"), nil, "shared", "onlyC"),
		module("d", "missing", "a"),
	}
	want := mustBuild(t, records)

	rng := rand.New(rand.NewSource(42))
	for range 10 {
		shuffled := append([]facts.ModuleFacts(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := mustBuild(t, shuffled)
		assert.Equal(t, want.Edges, got.Edges)
		assert.Equal(t, want.Cycles, got.Cycles)
		assert.Equal(t, want.ModuleIDs(), got.ModuleIDs())
		for _, id := range want.ModuleIDs() {
			assert.Equal(t, want.DependencyDepth(id), got.DependencyDepth(id), id)
		}
	}

	again := mustBuild(t, records)
	assert.Equal(t, want.Edges, again.Edges)
	assert.Equal(t, want.Stats, again.Stats)
}

func TestBuildSymbolResolution(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		withSymbols(module("a", "b", "c"), map[string][]string{
			"run": {"helper", "dup", "onlyB", "run", "nowhere"},
		}, "run", "helper"),
		withSymbols(module("b"), nil, "helper", "dup", "onlyB"),
		withSymbols(module("c"), nil, "dup"),
	})

	run, ok := g.Symbol(SymbolID{Module: "a", Name: "run"})
	require.True(t, ok)
	assert.Equal(t, []SymbolID{
		{Module: "a", Name: "helper"},
		{Module: "b", Name: "dup"},
		{Module: "b", Name: "onlyB"},
	}, run.Calls)

	confidence := make(map[string]float64)
	for _, edge := range g.Edges {
		if edge.Layer == LayerSymbol {
			confidence[edge.To] = edge.Confidence
		}
	}
	assert.Equal(t, ConfidenceLocalSymbol, confidence["a#helper"])
	assert.Equal(t, ConfidenceAmbiguous, confidence["b#dup"])
	assert.Equal(t, ConfidenceImportedSymbol, confidence["b#onlyB"])
	assert.Equal(t, 1, g.Stats.AmbiguousCalls)
	assert.Equal(t, 1, g.Stats.UnresolvedCalls)
}

func TestBuildCountsEachAmbiguousEdgeOnce(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		withSymbols(module("a", "b", "c"), map[string][]string{
			"run":  {"dup", "dup"},
			"walk": {"dup"},
		}, "run", "walk"),
		withSymbols(module("b"), nil, "dup"),
		withSymbols(module("c"), nil, "dup"),
	})
	assert.Equal(t, 2, g.Stats.AmbiguousCalls)
	assert.Equal(t, 2, g.Stats.SymbolEdges)
}

func TestBuildRecordsUnresolvedDependencies(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("a", "react", "./b", "a"),
		module("b"),
	})
	a, _ := g.Module("a")
	assert.Equal(t, []string{"react"}, a.Unresolved)
	assert.Equal(t, []string{"b"}, a.DeclaredDependencies)
	assert.Equal(t, 1, g.Stats.UnresolvedDependencies)
}

func TestFindCyclesSingleLoop(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("b", "c"),
		module("c", "a"),
		module("a", "b"),
	})
	require.Len(t, g.Cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, g.Cycles[0])
	assert.True(t, g.InCycle("b"))
}

func TestFindCyclesAcyclic(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("a", "b", "c"),
		module("b", "c"),
		module("c"),
	})
	assert.Empty(t, g.Cycles)
	assert.Equal(t, 2, g.DependencyDepth("a"))
	assert.Equal(t, 0, g.DependencyDepth("c"))
	assert.Equal(t, -1, g.DependencyDepth("zzz"))
}

func TestDependencyDepthSharesCycleGroup(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("a", "c"),
		module("b", "c"),
		module("c", "b", "d"),
		module("d", "e"),
		module("e"),
	})
	assert.Equal(t, 3, g.DependencyDepth("a"))
	assert.Equal(t, 2, g.DependencyDepth("b"))
	assert.Equal(t, 2, g.DependencyDepth("c"))
	assert.Equal(t, 1, g.DependencyDepth("d"))
	assert.Equal(t, 0, g.DependencyDepth("e"))
}

func TestFindCyclesRotatesToSmallestID(t *testing.T) {
	g := mustBuild(t, []facts.ModuleFacts{
		module("root", "z"),
		module("z", "m"),
		module("m", "q"),
		module("q", "z"),
	})
	require.Len(t, g.Cycles, 1)
	assert.Equal(t, []string{"m", "q", "z"}, g.Cycles[0])
	assert.False(t, g.InCycle("root"))
}

func TestFindCyclesAgreesWithTarjan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := range 20 {
		n := 12
		records := make([]facts.ModuleFacts, n)
		oracle := simple.NewDirectedGraph()
		for i := range n {
			oracle.AddNode(simple.Node(i))
		}
		for i := range n {
			id := fmt.Sprintf("m%02d", i)
			records[i] = module(id)
			for j := range n {
				if i == j || rng.Intn(6) != 0 {
					continue
				}
				records[i].DeclaredDependencies = append(records[i].DeclaredDependencies, fmt.Sprintf("m%02d", j))
				oracle.SetEdge(oracle.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
		g := mustBuild(t, records)

		component := make(map[string]int)
		nontrivial := 0
		for k, scc := range topo.TarjanSCC(oracle) {
			if len(scc) < 2 {
				continue
			}
			nontrivial++
			for _, node := range scc {
				component[fmt.Sprintf("m%02d", node.ID())] = k
			}
		}

		assert.Equal(t, nontrivial == 0, len(g.Cycles) == 0, "round %d", round)
		covered := make(map[int]bool)
		for _, cycle := range g.Cycles {
			k, ok := component[cycle[0]]
			require.True(t, ok, "round %d: %v outside any cycle component", round, cycle)
			covered[k] = true
			for i, id := range cycle {
				assert.Equal(t, k, component[id], "round %d", round)
				next := cycle[(i+1)%len(cycle)]
				assert.True(t, g.HasModuleEdge(id, next), "round %d: %s -> %s", round, id, next)
			}
		}
		assert.Len(t, covered, nontrivial, "round %d", round)
	}
}

func TestParseSymbolID(t *testing.T) {
	id, ok := ParseSymbolID("./src/a.ts#Widget.render")
	require.True(t, ok)
	assert.Equal(t, SymbolID{Module: "src/a.ts", Name: "Widget.render"}, id)
	assert.Equal(t, "src/a.ts#Widget.render", id.String())

	_, ok = ParseSymbolID("no-separator")
	assert.False(t, ok)
	_, ok = ParseSymbolID("#name")
	assert.False(t, ok)
}
