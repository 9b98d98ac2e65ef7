package critpath

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/metrics"
)

func build(t *testing.T, deps map[string][]string) *graph.Graph {
	t.Helper()
	records := make([]facts.ModuleFacts, 0, len(deps))
	for id, d := range deps {
		records = append(records, facts.ModuleFacts{ModuleID: id, DeclaredDependencies: d})
	}
	g, err := graph.Build(records)
	require.NoError(t, err)
	return g
}

func TestFindRanksEntriesAndHubs(t *testing.T) {
	g := build(t, map[string][]string{
		"app":    {"router", "util"},
		"cli":    {"util", "config"},
		"router": {"util"},
		"config": {"util"},
		"util":   nil,
	})

	res := Find(g, DefaultOptions())
	assert.Equal(t, []string{"app", "cli"}, res.Entries)
	assert.Equal(t, []Hub{
		{Module: "util", Dependents: 4},
		{Module: "config", Dependents: 1},
		{Module: "router", Dependents: 1},
	}, res.Hubs)
	assert.Empty(t, res.HighFanIn)
	assert.False(t, res.Capped)

	require.NotEmpty(t, res.Paths)
	assert.Equal(t, []string{"app", "router", "util"}, res.Paths[0])
	assert.Equal(t, []string{"cli", "config", "util"}, res.Paths[1])
	assert.LessOrEqual(t, len(res.Paths), DefaultMaxResults)
}

func TestFindSkipsCyclesWithoutRepeatingNodes(t *testing.T) {
	g := build(t, map[string][]string{
		"entry": {"a"},
		"a":     {"b"},
		"b":     {"c"},
		"c":     {"a", "hub"},
		"hub":   nil,
	})
	res := Find(g, Options{HubCount: 10})
	for _, path := range res.Paths {
		seen := make(map[string]bool)
		for _, id := range path {
			assert.False(t, seen[id], "repeated %s in %v", id, path)
			seen[id] = true
		}
	}
	assert.Equal(t, []string{"entry", "a", "b", "c", "hub"}, res.Paths[0])
}

func TestFindHighFanIn(t *testing.T) {
	deps := map[string][]string{"core": nil}
	for i := range 7 {
		deps[fmt.Sprintf("user%d", i)] = []string{"core"}
	}
	res := Find(build(t, deps), DefaultOptions())
	assert.Equal(t, []string{"core"}, res.HighFanIn)
	assert.Len(t, res.Entries, 7)
	assert.Len(t, res.Paths, DefaultMaxResults)
	assert.Equal(t, []string{"user0", "core"}, res.Paths[0])
}

// dense builds entries e0..e5, then layers of the given width that are fully
// connected to the next layer, ending in hubs h0..h2. With width 6 every
// non-entry module has six dependents, so ties put h0..h2 first.
func dense(layers, width int) map[string][]string {
	deps := make(map[string][]string)
	layer := func(l int) []string {
		ids := make([]string, width)
		for i := range ids {
			ids[i] = fmt.Sprintf("l%d_%d", l, i)
		}
		return ids
	}
	hubs := []string{"h0", "h1", "h2"}
	for i := range 6 {
		deps[fmt.Sprintf("e%d", i)] = layer(0)
	}
	for l := range layers {
		next := hubs
		if l < layers-1 {
			next = layer(l + 1)
		}
		for _, id := range layer(l) {
			deps[id] = next
		}
	}
	for _, h := range hubs {
		deps[h] = nil
	}
	return deps
}

func TestFindIsBoundedOnDenseGraphs(t *testing.T) {
	g := build(t, dense(6, 6))

	opts := DefaultOptions()
	opts.HubCount = 3
	opts.MaxSteps = 5000
	rec := metrics.NewRecorder()
	opts.Metrics = rec

	res := Find(g, opts)
	assert.True(t, res.Capped)
	assert.LessOrEqual(t, res.Steps, opts.MaxSteps)
	assert.LessOrEqual(t, len(res.Paths), opts.MaxResults)
	require.NotEmpty(t, res.Paths)
	// entry + six layers + hub
	assert.Len(t, res.Paths[0], 8)
}

func TestFindPerPairCap(t *testing.T) {
	g := build(t, dense(3, 6))
	res := Find(g, Options{HubCount: 1, MaxPathsPerPair: 3})
	assert.True(t, res.Capped)
	assert.Len(t, res.Paths, 5)
}

func TestFindPerPairCapOnlyWhenMorePathsExist(t *testing.T) {
	g := build(t, map[string][]string{
		"e": {"h"},
		"h": nil,
	})
	res := Find(g, Options{HubCount: 1, MaxPathsPerPair: 1})
	assert.Equal(t, [][]string{{"e", "h"}}, res.Paths)
	assert.False(t, res.Capped)

	g = build(t, map[string][]string{
		"e": {"a", "b"},
		"a": {"h"},
		"b": {"h"},
		"h": nil,
	})
	res = Find(g, Options{HubCount: 1, MaxPathsPerPair: 1})
	assert.Equal(t, [][]string{{"e", "a", "h"}}, res.Paths)
	assert.True(t, res.Capped)
}

func TestFindPathLengthCap(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"d"},
		"d": nil,
		"x": {"d"},
	})
	res := Find(g, Options{HubCount: 1, MaxPathLength: 3})
	assert.True(t, res.Capped)
	assert.Equal(t, [][]string{{"x", "d"}}, res.Paths)

	res = Find(g, Options{HubCount: 1, MaxPathLength: 4})
	assert.False(t, res.Capped)
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}, {"x", "d"}}, res.Paths)
}

func TestFindIsDeterministic(t *testing.T) {
	g := build(t, dense(4, 3))
	assert.Equal(t, Find(g, DefaultOptions()), Find(g, DefaultOptions()))
}

func TestFindNilGraph(t *testing.T) {
	res := Find(nil, DefaultOptions())
	assert.Empty(t, res.Paths)
	assert.False(t, res.Capped)
}
