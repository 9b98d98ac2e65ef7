// Package graph builds the two-layer dependency graph (modules and the symbols
// they declare) and detects module cycles.
//
// # Storage
//
// Nodes live in arenas addressed by integer index; adjacency is stored as
// index lists. Forward edges are computed first and every reverse list is
// derived from them in a single pass, so Dependents and CalledBy always mirror
// DeclaredDependencies and Calls.
//
// # Ownership
//
// A *Graph is a snapshot. Nothing mutates it after Build returns; slices handed
// out by accessors are shared with the graph and must be treated as read-only.
// A graph may be read from multiple goroutines.
package graph

import (
	"sort"
	"strings"

	"github.com/skelly-dev/ripple/internal/facts"
)

// Layer identifies which half of the graph an edge belongs to.
type Layer string

const (
	LayerModule Layer = "module"
	LayerSymbol Layer = "symbol"
)

// EdgeKind describes the relationship an edge records.
type EdgeKind string

const EdgeDirect EdgeKind = "direct"

// Edge confidence values. Advisory only; no analysis filters on them.
const (
	ConfidenceModule         = 0.95
	ConfidenceLocalSymbol    = 0.98
	ConfidenceImportedSymbol = 0.96
	ConfidenceAmbiguous      = 0.80
)

// SymbolID names a symbol within its module.
type SymbolID struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

func (id SymbolID) String() string {
	return id.Module + "#" + id.Name
}

// ParseSymbolID parses the "module#name" form produced by String.
func ParseSymbolID(raw string) (SymbolID, bool) {
	module, name, ok := strings.Cut(strings.TrimSpace(raw), "#")
	if !ok || module == "" || name == "" {
		return SymbolID{}, false
	}
	return SymbolID{Module: facts.NormalizeModuleID(module), Name: name}, true
}

// SortSymbolIDs orders ids by module then name.
func SortSymbolIDs(ids []SymbolID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Module != ids[j].Module {
			return ids[i].Module < ids[j].Module
		}
		return ids[i].Name < ids[j].Name
	})
}

// Edge is one directed dependency. From depends on To.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Layer      Layer    `json:"layer"`
	Kind       EdgeKind `json:"kind"`
	Confidence float64  `json:"confidence"`
}

// Key identifies an edge independent of its confidence.
func (e Edge) Key() string {
	return string(e.Layer) + "|" + e.From + "|" + e.To
}

// ModuleNode is a module and its resolved neighbourhood.
type ModuleNode struct {
	ID                   string     `json:"id"`
	DeclaredDependencies []string   `json:"declaredDependencies"`
	DeclaredSymbols      []SymbolID `json:"declaredSymbols"`
	Dependents           []string   `json:"dependents"`
	Unresolved           []string   `json:"unresolved,omitempty"`
}

// SymbolNode is a declared symbol and its resolved calls.
type SymbolNode struct {
	ID         SymbolID       `json:"id"`
	Calls      []SymbolID     `json:"calls"`
	CalledBy   []SymbolID     `json:"calledBy"`
	Complexity int            `json:"complexity"`
	Location   facts.Location `json:"location"`
}

// Stats aggregates what happened during construction. Unresolved references and
// malformed facts are not errors; they only show up here.
type Stats struct {
	Modules                int           `json:"modules"`
	Symbols                int           `json:"symbols"`
	ModuleEdges            int           `json:"moduleEdges"`
	SymbolEdges            int           `json:"symbolEdges"`
	Cycles                 int           `json:"cycles"`
	UnresolvedDependencies int           `json:"unresolvedDependencies"`
	UnresolvedCalls        int           `json:"unresolvedCalls"`
	AmbiguousCalls         int           `json:"ambiguousCalls"`
	MalformedRecords       int           `json:"malformedRecords"`
	SkippedEdges           int           `json:"skippedEdges"`
	Issues                 []facts.Issue `json:"issues,omitempty"`
}

// Graph is an immutable dependency-graph snapshot.
type Graph struct {
	modules     []ModuleNode
	symbols     []SymbolNode
	moduleIndex map[string]int
	symbolIndex map[SymbolID]int

	deps       [][]int
	dependents [][]int
	calls      [][]int
	calledBy   [][]int
	depth      []int
	inCycle    []bool

	Edges  []Edge
	Cycles [][]string
	Stats  Stats
}

// NumModules returns the module count.
func (g *Graph) NumModules() int { return len(g.modules) }

// ModuleIDs returns every module ID in sorted order.
func (g *Graph) ModuleIDs() []string {
	out := make([]string, len(g.modules))
	for i := range g.modules {
		out[i] = g.modules[i].ID
	}
	return out
}

// Module looks up a module by ID.
func (g *Graph) Module(id string) (ModuleNode, bool) {
	i, ok := g.moduleIndex[id]
	if !ok {
		return ModuleNode{}, false
	}
	return g.modules[i], true
}

// Symbol looks up a symbol by ID.
func (g *Graph) Symbol(id SymbolID) (SymbolNode, bool) {
	i, ok := g.symbolIndex[id]
	if !ok {
		return SymbolNode{}, false
	}
	return g.symbols[i], true
}

// ModuleIndex returns the arena index of a module.
func (g *Graph) ModuleIndex(id string) (int, bool) {
	i, ok := g.moduleIndex[id]
	return i, ok
}

// ModuleAt returns the ID of the module at arena index i.
func (g *Graph) ModuleAt(i int) string { return g.modules[i].ID }

// DependencyIndices returns the indices module i depends on, ascending.
func (g *Graph) DependencyIndices(i int) []int { return g.deps[i] }

// DependentIndices returns the indices of modules depending on module i, ascending.
func (g *Graph) DependentIndices(i int) []int { return g.dependents[i] }

// SymbolIndex returns the arena index of a symbol.
func (g *Graph) SymbolIndex(id SymbolID) (int, bool) {
	i, ok := g.symbolIndex[id]
	return i, ok
}

// SymbolAt returns the ID of the symbol at arena index i.
func (g *Graph) SymbolAt(i int) SymbolID { return g.symbols[i].ID }

// CallerIndices returns the indices of symbols calling symbol i, ascending.
func (g *Graph) CallerIndices(i int) []int { return g.calledBy[i] }

// InCycle reports whether a module appears in any reported cycle.
func (g *Graph) InCycle(id string) bool {
	i, ok := g.moduleIndex[id]
	return ok && g.inCycle[i]
}

// DependencyDepth returns the longest chain of dependency edges starting at the
// module. Modules on a common cycle share one depth. Unknown modules have
// depth -1.
func (g *Graph) DependencyDepth(id string) int {
	i, ok := g.moduleIndex[id]
	if !ok {
		return -1
	}
	return g.depth[i]
}

// HasModuleEdge reports whether from depends directly on to.
func (g *Graph) HasModuleEdge(from, to string) bool {
	i, ok := g.moduleIndex[from]
	if !ok {
		return false
	}
	j, ok := g.moduleIndex[to]
	if !ok {
		return false
	}
	return containsSorted(g.deps[i], j)
}

func containsSorted(values []int, target int) bool {
	k := sort.SearchInts(values, target)
	return k < len(values) && values[k] == target
}
