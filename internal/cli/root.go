package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ripple",
		Short: "Static dependency graph and change impact analysis",
		Long: `Ripple builds module and symbol dependency graphs for JavaScript and
TypeScript projects, reports dependency cycles, and computes which files and
symbols a change can reach.

Facts are extracted with tree-sitter, or read from a JSON/YAML facts file
produced by another extractor (--facts).`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: .ripple.yaml in the project root)")
	flags.String("facts", "", "Read module facts from a JSON/YAML file instead of scanning sources")
	flags.CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolP("quiet", "q", false, "Silence all logging")
	flags.Bool("json", false, "Print machine-readable output")
	flags.String("metrics-file", "", "Write Prometheus text-format metrics for the run to this file")

	// Graph Commands
	graphCmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Build the dependency graph and summarise it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunGraph,
	}
	graphCmd.Flags().String("write-facts", "", "Also write the extracted facts to this JSON/YAML file")
	graphCmd.Flags().Bool("edges", false, "List every module edge")

	cyclesCmd := &cobra.Command{
		Use:   "cycles [path]",
		Short: "List module dependency cycles",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunCycles,
	}
	cyclesCmd.Flags().Bool("fail", false, "Exit non-zero when any cycle exists")

	// Analysis Commands
	impactCmd := &cobra.Command{
		Use:   "impact [path]",
		Short: "Show modules and symbols affected by a change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunImpact,
	}
	impactCmd.Flags().StringSliceP("module", "m", []string{}, "Changed module IDs (repeatable, comma-separated)")
	impactCmd.Flags().StringSliceP("symbol", "s", []string{}, "Changed symbols as module#name (repeatable)")
	impactCmd.Flags().Bool("since-snapshot", false, "Use modules changed or deleted since the last snapshot as the change set")

	criticalCmd := &cobra.Command{
		Use:   "critical [path]",
		Short: "Rank hub modules and list the longest dependency chains into them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunCritical,
	}

	// Snapshot Commands
	snapshotCmd := &cobra.Command{
		Use:   "snapshot [path]",
		Short: "Record the current facts and content hashes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSnapshot,
	}

	diffCmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Compare the snapshot graph with the current graph",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunDiff,
	}
	diffCmd.Flags().Bool("fail-on-regression", false, "Exit non-zero when new cycles or depth regressions appear")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ripple %s\n", version)
		},
	}

	rootCmd.AddCommand(
		graphCmd,
		cyclesCmd,
		impactCmd,
		criticalCmd,
		snapshotCmd,
		diffCmd,
		versionCmd,
	)

	return rootCmd
}
