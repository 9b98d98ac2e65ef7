package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/skelly-dev/ripple/internal/critpath"
	"github.com/skelly-dev/ripple/internal/diff"
	"github.com/skelly-dev/ripple/internal/extract"
	"github.com/skelly-dev/ripple/internal/fileutil"
	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/impact"
)

type GraphSummary struct {
	Mode          string          `json:"mode"`
	RootPath      string          `json:"root_path"`
	Source        string          `json:"source"`
	Stats         graph.Stats     `json:"stats"`
	ExtractIssues []extract.Issue `json:"extract_issues,omitempty"`
	Edges         []graph.Edge    `json:"edges,omitempty"`
	FactsFile     string          `json:"facts_file,omitempty"`
	DurationMS    int64           `json:"duration_ms"`
}

type CyclesSummary struct {
	Mode     string     `json:"mode"`
	RootPath string     `json:"root_path"`
	Cycles   [][]string `json:"cycles"`
}

type ImpactSummary struct {
	Mode           string        `json:"mode"`
	RootPath       string        `json:"root_path"`
	SinceSnapshot  bool          `json:"since_snapshot"`
	ChangedModules []string      `json:"changed_modules,omitempty"`
	DeletedModules []string      `json:"deleted_modules,omitempty"`
	Impact         impact.Result `json:"impact"`
}

type CriticalSummary struct {
	Mode     string          `json:"mode"`
	RootPath string          `json:"root_path"`
	Result   critpath.Result `json:"result"`
}

type SnapshotSummary struct {
	Mode     string `json:"mode"`
	RootPath string `json:"root_path"`
	Path     string `json:"path"`
	Modules  int    `json:"modules"`
	Changed  int    `json:"changed"`
	Deleted  int    `json:"deleted"`
}

type DiffSummary struct {
	Mode         string      `json:"mode"`
	RootPath     string      `json:"root_path"`
	SnapshotPath string      `json:"snapshot_path"`
	Diff         diff.Result `json:"diff"`
}

func PrintGraphSummary(w io.Writer, summary GraphSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	st := summary.Stats
	fmt.Fprintf(w, "graph built from %s in %dms\n", summary.Source, summary.DurationMS)
	fmt.Fprintf(w, "modules=%d symbols=%d module_edges=%d symbol_edges=%d cycles=%d\n",
		st.Modules, st.Symbols, st.ModuleEdges, st.SymbolEdges, st.Cycles)
	fmt.Fprintf(w, "unresolved: dependencies=%d calls=%d ambiguous_calls=%d\n",
		st.UnresolvedDependencies, st.UnresolvedCalls, st.AmbiguousCalls)
	if st.MalformedRecords > 0 || st.SkippedEdges > 0 || len(st.Issues) > 0 {
		fmt.Fprintf(w, "facts issues=%d malformed_records=%d skipped_edges=%d\n",
			len(st.Issues), st.MalformedRecords, st.SkippedEdges)
		for _, issue := range st.Issues {
			fmt.Fprintf(w, "  %s %s: %s\n", issue.Kind, issueSubject(issue.Module, issue.Symbol), issue.Message)
		}
	}
	if len(summary.ExtractIssues) > 0 {
		fmt.Fprintf(w, "extraction issues (%d):\n", len(summary.ExtractIssues))
		for _, issue := range summary.ExtractIssues {
			fmt.Fprintf(w, "  %s %s: %s\n", issue.Severity, issue.File, issue.Message)
		}
	}
	for _, e := range summary.Edges {
		fmt.Fprintf(w, "  %s -> %s\n", e.From, e.To)
	}
	if summary.FactsFile != "" {
		fmt.Fprintf(w, "facts written: %s\n", summary.FactsFile)
	}
	return nil
}

func PrintCyclesSummary(w io.Writer, summary CyclesSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}
	if len(summary.Cycles) == 0 {
		fmt.Fprintln(w, "no dependency cycles")
		return nil
	}
	fmt.Fprintf(w, "dependency cycles (%d):\n", len(summary.Cycles))
	for _, cycle := range summary.Cycles {
		fmt.Fprintf(w, "  %s\n", FormatCycle(cycle))
	}
	return nil
}

func PrintImpactSummary(w io.Writer, summary ImpactSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	res := summary.Impact
	if summary.SinceSnapshot {
		fmt.Fprintf(w, "changed since snapshot (%d): %s\n", len(summary.ChangedModules), SummarizePaths(summary.ChangedModules, 8))
		if len(summary.DeletedModules) > 0 {
			fmt.Fprintf(w, "deleted since snapshot (%d): %s\n", len(summary.DeletedModules), SummarizePaths(summary.DeletedModules, 8))
		}
	}
	fmt.Fprintf(w, "affected modules (%d):\n", len(res.AffectedModules))
	for _, m := range res.AffectedModules {
		fmt.Fprintf(w, "  %s\n", m)
	}
	fmt.Fprintf(w, "affected symbols (%d):\n", len(res.AffectedSymbols))
	for _, s := range res.AffectedSymbols {
		fmt.Fprintf(w, "  %s\n", s)
	}
	if len(res.BreakingChangeNotes) > 0 {
		fmt.Fprintln(w, "breaking change notes:")
		for _, note := range res.BreakingChangeNotes {
			fmt.Fprintf(w, "  %s\n", note)
		}
	}
	if len(res.UnknownModules) > 0 {
		fmt.Fprintf(w, "unknown modules: %s\n", strings.Join(res.UnknownModules, ", "))
	}
	if len(res.UnknownSymbols) > 0 {
		names := make([]string, 0, len(res.UnknownSymbols))
		for _, s := range res.UnknownSymbols {
			names = append(names, s.String())
		}
		fmt.Fprintf(w, "unknown symbols: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func PrintCriticalSummary(w io.Writer, summary CriticalSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	res := summary.Result
	fmt.Fprintf(w, "hubs (%d):\n", len(res.Hubs))
	for _, hub := range res.Hubs {
		fmt.Fprintf(w, "  %s (%d dependents)\n", hub.Module, hub.Dependents)
	}
	if len(res.HighFanIn) > 0 {
		fmt.Fprintf(w, "high fan-in (%d): %s\n", len(res.HighFanIn), SummarizePaths(res.HighFanIn, 8))
	}
	fmt.Fprintf(w, "critical paths (%d):\n", len(res.Paths))
	for _, path := range res.Paths {
		fmt.Fprintf(w, "  [%d] %s\n", len(path), strings.Join(path, " -> "))
	}
	if res.Capped {
		fmt.Fprintf(w, "search capped after %d steps; paths may not be the longest\n", res.Steps)
	}
	return nil
}

func PrintSnapshotSummary(w io.Writer, summary SnapshotSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}
	fmt.Fprintf(w, "snapshot written: %s (modules=%d changed=%d deleted=%d)\n",
		summary.Path, summary.Modules, summary.Changed, summary.Deleted)
	return nil
}

func PrintDiffSummary(w io.Writer, summary DiffSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	d := summary.Diff
	if d.Empty() {
		fmt.Fprintln(w, "no structural changes since snapshot")
		return nil
	}
	printCycles := func(label string, cycles [][]string) {
		if len(cycles) == 0 {
			return
		}
		fmt.Fprintf(w, "%s (%d):\n", label, len(cycles))
		for _, c := range cycles {
			fmt.Fprintf(w, "  %s\n", FormatCycle(c))
		}
	}
	printEdges := func(label string, edges []graph.Edge) {
		if len(edges) == 0 {
			return
		}
		fmt.Fprintf(w, "%s (%d):\n", label, len(edges))
		for _, e := range edges {
			fmt.Fprintf(w, "  [%s] %s -> %s\n", e.Layer, e.From, e.To)
		}
	}

	printCycles("new cycles", d.NewCycles)
	printCycles("resolved cycles", d.ResolvedCycles)
	printEdges("added edges", d.AddedEdges)
	printEdges("removed edges", d.RemovedEdges)
	if len(d.HighFanInChanges) > 0 {
		fmt.Fprintf(w, "high fan-in changes (%d):\n", len(d.HighFanInChanges))
		for _, note := range d.HighFanInChanges {
			fmt.Fprintf(w, "  %s\n", note)
		}
	}
	if len(d.DepthRegressions) > 0 {
		fmt.Fprintf(w, "depth regressions (%d):\n", len(d.DepthRegressions))
		for _, r := range d.DepthRegressions {
			fmt.Fprintf(w, "  %s %d -> %d\n", r.Module, r.Before, r.After)
		}
	}
	return nil
}

// FormatCycle renders a cycle closed back onto its first module.
func FormatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}

func issueSubject(module, symbol string) string {
	if symbol == "" {
		return module
	}
	return module + "#" + symbol
}
