package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/config"
	"github.com/skelly-dev/ripple/internal/critpath"
	"github.com/skelly-dev/ripple/internal/diff"
	"github.com/skelly-dev/ripple/internal/extract"
	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/fileutil"
	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/impact"
	"github.com/skelly-dev/ripple/internal/logging"
	"github.com/skelly-dev/ripple/internal/metrics"
	"github.com/skelly-dev/ripple/internal/resolve"
	"github.com/skelly-dev/ripple/internal/snapshot"
)

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// resolveRootPath returns the absolute project root: the optional positional
// argument, or the working directory.
func resolveRootPath(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return resolveWorkingDirectory()
	}
	rootPath, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to open project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", rootPath)
	}
	return rootPath, nil
}

// session carries everything one command invocation shares: the project root,
// its configuration, logging and metrics.
type session struct {
	root        string
	cfg         *config.Config
	logger      *slog.Logger
	recorder    *metrics.Recorder
	factsFile   string
	metricsFile string
	asJSON      bool
	out         io.Writer
	errOut      io.Writer
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	rootPath, err := resolveRootPath(args)
	if err != nil {
		return nil, err
	}
	configPath, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	factsFile, err := OptionalStringFlag(cmd, "facts")
	if err != nil {
		return nil, err
	}
	metricsFile, err := OptionalStringFlag(cmd, "metrics-file")
	if err != nil {
		return nil, err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return nil, err
	}
	quiet, err := OptionalBoolFlag(cmd, "quiet")
	if err != nil {
		return nil, err
	}
	verbosity, err := OptionalCountFlag(cmd, "verbose")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(rootPath, configPath)
	if err != nil {
		return nil, err
	}

	level := logging.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = logging.LevelFromVerbosity(verbosity, quiet)
	}

	s := &session{
		root:        rootPath,
		cfg:         cfg,
		logger:      logging.NewLogger(cmd.ErrOrStderr(), level, logging.Format(cfg.Logging.Format)),
		factsFile:   factsFile,
		metricsFile: metricsFile,
		asJSON:      asJSON,
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
	}
	if metricsFile != "" {
		s.recorder = metrics.NewRecorder()
	}
	return s, nil
}

// sourceSet is a collection of module facts and the hashes that identify
// their content.
type sourceSet struct {
	records []facts.ModuleFacts
	hashes  map[string]string
	issues  []extract.Issue
}

// loadSources reads the facts file when one was given and scans the project
// root otherwise.
func (s *session) loadSources(cmd *cobra.Command) (*sourceSet, error) {
	if s.factsFile != "" {
		records, err := facts.Load(s.factsFile)
		if err != nil {
			return nil, err
		}
		hashes := make(map[string]string, len(records))
		for _, record := range records {
			id := facts.NormalizeModuleID(record.ModuleID)
			if id == "" {
				continue
			}
			data, err := json.Marshal(record)
			if err != nil {
				return nil, err
			}
			hashes[id] = fileutil.HashBytes(data)
		}
		s.logger.Info("loaded facts file", "path", s.factsFile, "modules", len(records))
		return &sourceSet{records: records, hashes: hashes, issues: make([]extract.Issue, 0)}, nil
	}

	progress := newParseProgressReporter(s.errOut, "extract", s.asJSON)
	extractor := extract.New(
		extract.WithWorkers(s.cfg.Extract.Workers),
		extract.WithIgnoreRules(s.cfg.Extract.Ignore),
		extract.WithLogger(s.logger),
		extract.WithMetrics(s.recorder),
		extract.WithProgress(progress.Update),
	)
	res, err := extractor.Extract(cmd.Context(), s.root)
	if err != nil {
		return nil, err
	}
	progress.Done(len(res.Modules))
	for _, issue := range res.Issues {
		s.logger.Warn("extraction issue", "file", issue.File, "severity", issue.Severity, "message", issue.Message)
	}
	return &sourceSet{records: res.Modules, hashes: res.Hashes, issues: res.Issues}, nil
}

func (s *session) buildGraph(records []facts.ModuleFacts) (*graph.Graph, error) {
	return graph.Build(records,
		graph.WithLogger(s.logger),
		graph.WithMetrics(s.recorder),
		graph.WithResolverOptions(resolve.WithSuffixes(s.cfg.Resolver.Suffixes)),
	)
}

// currentGraph loads sources and builds their graph.
func (s *session) currentGraph(cmd *cobra.Command) (*sourceSet, *graph.Graph, error) {
	sources, err := s.loadSources(cmd)
	if err != nil {
		return nil, nil, err
	}
	g, err := s.buildGraph(sources.records)
	if err != nil {
		return nil, nil, err
	}
	return sources, g, nil
}

func (s *session) snapshotPath() string {
	return s.cfg.SnapshotPath(s.root)
}

func (s *session) loadSnapshot() (*snapshot.Snapshot, error) {
	snap, err := snapshot.Load(s.snapshotPath())
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, fmt.Errorf("%w (run `ripple snapshot` first)", err)
	}
	return snap, err
}

// finish flushes per-run side outputs. It is called once the command's
// result has been printed.
func (s *session) finish() error {
	if s.metricsFile == "" {
		return nil
	}
	if err := s.recorder.WriteTextfile(s.metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (s *session) impactOptions() impact.Options {
	return impact.Options{
		BreakingFanIn: s.cfg.Analysis.BreakingFanIn,
		MaxDepth:      s.cfg.Analysis.MaxDepth,
		Logger:        s.logger,
	}
}

func (s *session) critpathOptions() critpath.Options {
	return critpath.Options{
		HighFanIn:       s.cfg.Analysis.HighFanIn,
		HubCount:        s.cfg.Analysis.HubCount,
		MaxResults:      s.cfg.Analysis.MaxCriticalPaths,
		MaxPathsPerPair: s.cfg.Analysis.MaxPathsPerPair,
		MaxPathLength:   s.cfg.Analysis.MaxPathLength,
		MaxSteps:        s.cfg.Analysis.MaxSearchSteps,
		Logger:          s.logger,
		Metrics:         s.recorder,
	}
}

func (s *session) diffOptions() diff.Options {
	return diff.Options{HighFanIn: s.cfg.Analysis.HighFanIn}
}
