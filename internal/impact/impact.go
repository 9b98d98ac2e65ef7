// Package impact computes which modules and symbols are transitively affected
// by a change.
package impact

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/logging"
)

const (
	DefaultBreakingFanIn = 10
	DefaultMaxDepth      = 5
)

// Options tunes the breaking-change heuristics. Zero thresholds fall back to
// the defaults.
type Options struct {
	// BreakingFanIn flags changed modules and symbols with more dependents than this.
	BreakingFanIn int
	// MaxDepth flags changed modules whose dependency depth exceeds it.
	MaxDepth int
	Logger   *slog.Logger
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{BreakingFanIn: DefaultBreakingFanIn, MaxDepth: DefaultMaxDepth}
}

// Result is the impact set of a change. All slices are sorted.
type Result struct {
	AffectedModules     []string         `json:"affectedModules"`
	AffectedSymbols     []graph.SymbolID `json:"affectedSymbols"`
	BreakingChangeNotes []string         `json:"breakingChangeNotes"`
	UnknownModules      []string         `json:"unknownModules,omitempty"`
	UnknownSymbols      []graph.SymbolID `json:"unknownSymbols,omitempty"`
}

// HasModule reports whether id is in the affected module set.
func (r Result) HasModule(id string) bool {
	k := sort.SearchStrings(r.AffectedModules, id)
	return k < len(r.AffectedModules) && r.AffectedModules[k] == id
}

// HasSymbol reports whether id is in the affected symbol set.
func (r Result) HasSymbol(id graph.SymbolID) bool {
	for _, s := range r.AffectedSymbols {
		if s == id {
			return true
		}
	}
	return false
}

// Analyze walks reverse edges from the changed modules and symbols.
//
// A changed symbol also counts as a change to the module that declares it.
// Changed IDs the graph does not know are reported back rather than treated as
// errors. Breaking-change notes are advisory and never affect the impact set.
func Analyze(g *graph.Graph, changedModules []string, changedSymbols []graph.SymbolID, opts Options) Result {
	if opts.BreakingFanIn <= 0 {
		opts.BreakingFanIn = DefaultBreakingFanIn
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := logging.OrDiscard(opts.Logger)
	result := Result{
		AffectedModules:     make([]string, 0),
		AffectedSymbols:     make([]graph.SymbolID, 0),
		BreakingChangeNotes: make([]string, 0),
	}
	if g == nil {
		return result
	}

	moduleSeeds := make([]int, 0, len(changedModules)+len(changedSymbols))
	seededModule := make(map[int]bool)
	addModuleSeed := func(i int) {
		if !seededModule[i] {
			seededModule[i] = true
			moduleSeeds = append(moduleSeeds, i)
		}
	}
	for _, id := range changedModules {
		i, ok := g.ModuleIndex(id)
		if !ok {
			result.UnknownModules = append(result.UnknownModules, id)
			continue
		}
		addModuleSeed(i)
	}

	symbolSeeds := make([]int, 0, len(changedSymbols))
	for _, id := range changedSymbols {
		i, ok := g.SymbolIndex(id)
		if !ok {
			result.UnknownSymbols = append(result.UnknownSymbols, id)
			continue
		}
		symbolSeeds = append(symbolSeeds, i)
		if owner, ok := g.ModuleIndex(id.Module); ok {
			addModuleSeed(owner)
		}
	}

	for _, i := range reach(moduleSeeds, g.DependentIndices) {
		result.AffectedModules = append(result.AffectedModules, g.ModuleAt(i))
	}
	for _, i := range reach(symbolSeeds, g.CallerIndices) {
		result.AffectedSymbols = append(result.AffectedSymbols, g.SymbolAt(i))
	}

	sort.Ints(moduleSeeds)
	for _, i := range moduleSeeds {
		result.BreakingChangeNotes = append(result.BreakingChangeNotes, moduleNotes(g, g.ModuleAt(i), opts)...)
	}
	sort.Ints(symbolSeeds)
	for _, i := range symbolSeeds {
		if callers := len(g.CallerIndices(i)); callers > opts.BreakingFanIn {
			result.BreakingChangeNotes = append(result.BreakingChangeNotes,
				fmt.Sprintf("symbol %s has %d callers (> %d)", g.SymbolAt(i), callers, opts.BreakingFanIn))
		}
	}

	sort.Strings(result.UnknownModules)
	graph.SortSymbolIDs(result.UnknownSymbols)
	logger.Debug("impact computed",
		"changed_modules", len(moduleSeeds),
		"changed_symbols", len(symbolSeeds),
		"affected_modules", len(result.AffectedModules),
		"affected_symbols", len(result.AffectedSymbols),
		"notes", len(result.BreakingChangeNotes),
	)
	return result
}

func moduleNotes(g *graph.Graph, id string, opts Options) []string {
	node, _ := g.Module(id)
	notes := make([]string, 0)
	if n := len(node.Dependents); n > opts.BreakingFanIn {
		notes = append(notes, fmt.Sprintf("module %s has %d dependents (> %d)", id, n, opts.BreakingFanIn))
	}
	if g.InCycle(id) {
		notes = append(notes, fmt.Sprintf("module %s participates in a dependency cycle", id))
	}
	if depth := g.DependencyDepth(id); depth > opts.MaxDepth {
		notes = append(notes, fmt.Sprintf("module %s has dependency depth %d (> %d)", id, depth, opts.MaxDepth))
	}
	return notes
}

// reach returns every index reachable from seeds via next, seeds included,
// in ascending order.
func reach(seeds []int, next func(int) []int) []int {
	visited := make(map[int]bool, len(seeds))
	worklist := make([]int, 0, len(seeds))
	for _, s := range seeds {
		if !visited[s] {
			visited[s] = true
			worklist = append(worklist, s)
		}
	}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, n := range next(cur) {
			if !visited[n] {
				visited[n] = true
				worklist = append(worklist, n)
			}
		}
	}

	out := make([]int, 0, len(visited))
	for i := range visited {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
