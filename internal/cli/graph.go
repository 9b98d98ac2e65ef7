package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/graph"
)

// ErrCyclesFound is returned by `cycles --fail` when the graph is cyclic.
var ErrCyclesFound = errors.New("dependency cycles found")

func RunGraph(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	writeFacts, err := OptionalStringFlag(cmd, "write-facts")
	if err != nil {
		return err
	}
	listEdges, err := OptionalBoolFlag(cmd, "edges")
	if err != nil {
		return err
	}

	start := time.Now()
	sources, g, err := s.currentGraph(cmd)
	if err != nil {
		return err
	}

	summary := GraphSummary{
		Mode:          "graph",
		RootPath:      s.root,
		Source:        "source scan",
		Stats:         g.Stats,
		ExtractIssues: sources.issues,
		DurationMS:    time.Since(start).Milliseconds(),
	}
	if s.factsFile != "" {
		summary.Source = s.factsFile
	}
	if listEdges {
		summary.Edges = moduleEdges(g)
	}
	if writeFacts != "" {
		if err := facts.Save(writeFacts, sources.records); err != nil {
			return fmt.Errorf("failed to write facts: %w", err)
		}
		summary.FactsFile = writeFacts
	}

	if err := PrintGraphSummary(s.out, summary, s.asJSON); err != nil {
		return err
	}
	return s.finish()
}

func RunCycles(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	failOnCycles, err := OptionalBoolFlag(cmd, "fail")
	if err != nil {
		return err
	}

	_, g, err := s.currentGraph(cmd)
	if err != nil {
		return err
	}
	summary := CyclesSummary{Mode: "cycles", RootPath: s.root, Cycles: g.Cycles}
	if err := PrintCyclesSummary(s.out, summary, s.asJSON); err != nil {
		return err
	}
	if err := s.finish(); err != nil {
		return err
	}
	if failOnCycles && len(g.Cycles) > 0 {
		return fmt.Errorf("%w: %d", ErrCyclesFound, len(g.Cycles))
	}
	return nil
}

func moduleEdges(g *graph.Graph) []graph.Edge {
	out := make([]graph.Edge, 0, g.Stats.ModuleEdges)
	for _, e := range g.Edges {
		if e.Layer == graph.LayerModule {
			out = append(out, e)
		}
	}
	return out
}
