package cli

import (
	"errors"
	"slices"

	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/fileutil"
	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/impact"
	"github.com/skelly-dev/ripple/internal/snapshot"
)

// ErrNoChangeSet is returned when impact is run without anything to analyze.
var ErrNoChangeSet = errors.New("no change set: pass --module, --symbol or --since-snapshot")

func RunImpact(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	changedModules, changedSymbols, err := ParseChangeFlags(cmd)
	if err != nil {
		return err
	}
	sinceSnapshot, err := OptionalBoolFlag(cmd, "since-snapshot")
	if err != nil {
		return err
	}
	if !sinceSnapshot && len(changedModules) == 0 && len(changedSymbols) == 0 {
		return ErrNoChangeSet
	}

	var snap *snapshot.Snapshot
	if sinceSnapshot {
		if snap, err = s.loadSnapshot(); err != nil {
			return err
		}
	}

	sources, g, err := s.currentGraph(cmd)
	if err != nil {
		return err
	}

	summary := ImpactSummary{Mode: "impact", RootPath: s.root, SinceSnapshot: sinceSnapshot}
	if snap != nil {
		seeds, changed, deleted, err := s.snapshotChangeSet(snap, sources.hashes, g)
		if err != nil {
			return err
		}
		summary.ChangedModules = changed
		summary.DeletedModules = deleted
		changedModules = append(changedModules, seeds...)
	}
	slices.Sort(changedModules)
	changedModules = slices.Compact(changedModules)

	summary.Impact = impact.Analyze(g, changedModules, changedSymbols, s.impactOptions())
	if err := PrintImpactSummary(s.out, summary, s.asJSON); err != nil {
		return err
	}
	return s.finish()
}

// snapshotChangeSet compares current hashes with snap. Changed modules seed
// the analysis directly; a deleted module seeds its former dependents that
// still exist.
func (s *session) snapshotChangeSet(snap *snapshot.Snapshot, hashes map[string]string, current *graph.Graph) (seeds, changed, deleted []string, err error) {
	changed = snap.ChangedModules(hashes)
	present := fileutil.ToSet(current.ModuleIDs())
	deleted = snap.DeletedModules(present)

	seeds = append(seeds, changed...)
	if len(deleted) == 0 {
		return seeds, changed, deleted, nil
	}

	before, err := s.buildGraph(snap.Records())
	if err != nil {
		return nil, nil, nil, err
	}
	for _, id := range deleted {
		node, ok := before.Module(id)
		if !ok {
			continue
		}
		for _, dependent := range node.Dependents {
			if present[dependent] {
				seeds = append(seeds, dependent)
			}
		}
	}
	s.logger.Info("change set from snapshot", "changed", len(changed), "deleted", len(deleted), "seeds", len(seeds))
	return seeds, changed, deleted, nil
}
