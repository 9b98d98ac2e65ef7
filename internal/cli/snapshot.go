package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/diff"
	"github.com/skelly-dev/ripple/internal/fileutil"
	"github.com/skelly-dev/ripple/internal/snapshot"
)

// ErrRegression is returned by `diff --fail-on-regression`.
var ErrRegression = errors.New("structural regression since snapshot")

func RunSnapshot(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	sources, err := s.loadSources(cmd)
	if err != nil {
		return err
	}

	summary := SnapshotSummary{Mode: "snapshot", RootPath: s.root, Path: s.snapshotPath(), Modules: len(sources.records)}
	previous, err := snapshot.Load(summary.Path)
	switch {
	case err == nil:
		summary.Changed = len(previous.ChangedModules(sources.hashes))
		present := fileutil.ToSet(fileutil.MapKeysSorted(sources.hashes))
		summary.Deleted = len(previous.DeletedModules(present))
	case errors.Is(err, snapshot.ErrNotFound):
		summary.Changed = len(sources.hashes)
	default:
		s.logger.Warn("ignoring unreadable snapshot", "path", summary.Path, "error", err)
	}

	if err := snapshot.FromFacts(sources.records, sources.hashes).Save(summary.Path); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := PrintSnapshotSummary(s.out, summary, s.asJSON); err != nil {
		return err
	}
	return s.finish()
}

func RunDiff(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	failOnRegression, err := OptionalBoolFlag(cmd, "fail-on-regression")
	if err != nil {
		return err
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return err
	}
	before, err := s.buildGraph(snap.Records())
	if err != nil {
		return err
	}
	_, after, err := s.currentGraph(cmd)
	if err != nil {
		return err
	}

	res, err := diff.Compare(before, after, s.diffOptions())
	if err != nil {
		return err
	}
	summary := DiffSummary{Mode: "diff", RootPath: s.root, SnapshotPath: s.snapshotPath(), Diff: res}
	if err := PrintDiffSummary(s.out, summary, s.asJSON); err != nil {
		return err
	}
	if err := s.finish(); err != nil {
		return err
	}
	if failOnRegression && (len(res.NewCycles) > 0 || len(res.DepthRegressions) > 0) {
		return fmt.Errorf("%w: %d new cycles, %d depth regressions", ErrRegression, len(res.NewCycles), len(res.DepthRegressions))
	}
	return nil
}
