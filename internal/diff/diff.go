// Package diff compares two dependency graph snapshots.
package diff

import (
	"errors"
	"fmt"

	"github.com/skelly-dev/ripple/internal/graph"
)

// ErrNilGraph is returned when either snapshot is missing.
var ErrNilGraph = errors.New("diff: nil graph")

const DefaultHighFanIn = 5

// Options tunes Compare.
type Options struct {
	// HighFanIn selects the modules, by dependent count in the before graph,
	// whose dependency changes are reported.
	HighFanIn int
}

// DefaultOptions returns the thresholds used by the CLI.
func DefaultOptions() Options {
	return Options{HighFanIn: DefaultHighFanIn}
}

// DepthChange records a module whose dependency depth grew.
type DepthChange struct {
	Module string `json:"module"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// Result lists the structural changes between two graphs.
type Result struct {
	NewCycles        [][]string    `json:"newCycles"`
	ResolvedCycles   [][]string    `json:"resolvedCycles"`
	RemovedEdges     []graph.Edge  `json:"removedEdges"`
	AddedEdges       []graph.Edge  `json:"addedEdges"`
	HighFanInChanges []string      `json:"highFanInChanges"`
	DepthRegressions []DepthChange `json:"depthRegressions"`
}

// Empty reports whether the snapshots are structurally identical.
func (r Result) Empty() bool {
	return len(r.NewCycles) == 0 && len(r.ResolvedCycles) == 0 &&
		len(r.RemovedEdges) == 0 && len(r.AddedEdges) == 0 &&
		len(r.HighFanInChanges) == 0 && len(r.DepthRegressions) == 0
}

// Compare reports what changed between before and after. Both graphs are only read.
func Compare(before, after *graph.Graph, opts Options) (Result, error) {
	if before == nil || after == nil {
		return Result{}, ErrNilGraph
	}
	if opts.HighFanIn <= 0 {
		opts.HighFanIn = DefaultHighFanIn
	}

	res := Result{
		NewCycles:      cyclesMissingFrom(after.Cycles, before.Cycles),
		ResolvedCycles: cyclesMissingFrom(before.Cycles, after.Cycles),
		RemovedEdges:   edgesMissingFrom(before.Edges, after.Edges),
		AddedEdges:     edgesMissingFrom(after.Edges, before.Edges),
	}
	res.HighFanInChanges = highFanInChanges(before, after, opts.HighFanIn)
	res.DepthRegressions = depthRegressions(before, after)
	return res, nil
}

func cyclesMissingFrom(cycles, other [][]string) [][]string {
	present := make(map[string]bool, len(other))
	for _, c := range other {
		present[graph.CycleKey(c)] = true
	}
	out := make([][]string, 0)
	for _, c := range cycles {
		if !present[graph.CycleKey(c)] {
			out = append(out, c)
		}
	}
	return out
}

func edgesMissingFrom(edges, other []graph.Edge) []graph.Edge {
	present := make(map[string]bool, len(other))
	for _, e := range other {
		present[e.Key()] = true
	}
	out := make([]graph.Edge, 0)
	for _, e := range edges {
		if !present[e.Key()] {
			out = append(out, e)
		}
	}
	return out
}

func highFanInChanges(before, after *graph.Graph, threshold int) []string {
	notes := make([]string, 0)
	for _, id := range before.ModuleIDs() {
		old, _ := before.Module(id)
		if len(old.Dependents) <= threshold {
			continue
		}
		cur, ok := after.Module(id)
		if !ok {
			notes = append(notes, fmt.Sprintf("high fan-in module %s (%d dependents) was removed", id, len(old.Dependents)))
			continue
		}
		added, removed := setDelta(old.DeclaredDependencies, cur.DeclaredDependencies)
		for _, dep := range added {
			notes = append(notes, fmt.Sprintf("high fan-in module %s added dependency %s", id, dep))
		}
		for _, dep := range removed {
			notes = append(notes, fmt.Sprintf("high fan-in module %s removed dependency %s", id, dep))
		}
	}
	return notes
}

// setDelta compares two sorted lists.
func setDelta(before, after []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(before) || j < len(after) {
		switch {
		case j == len(after) || (i < len(before) && before[i] < after[j]):
			removed = append(removed, before[i])
			i++
		case i == len(before) || after[j] < before[i]:
			added = append(added, after[j])
			j++
		default:
			i++
			j++
		}
	}
	return added, removed
}

func depthRegressions(before, after *graph.Graph) []DepthChange {
	out := make([]DepthChange, 0)
	for _, id := range after.ModuleIDs() {
		was := before.DependencyDepth(id)
		if was < 0 {
			continue
		}
		if now := after.DependencyDepth(id); now > was {
			out = append(out, DepthChange{Module: id, Before: was, After: now})
		}
	}
	return out
}
