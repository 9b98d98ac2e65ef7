// Package extract turns a JavaScript/TypeScript source tree into module facts
// using tree-sitter.
//
// Files are parsed in parallel by a fixed pool of workers, each owning its own
// parsers. Results are merged in module ID order, so the output never depends
// on scheduling.
package extract

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/fileutil"
	"github.com/skelly-dev/ripple/internal/ignore"
	"github.com/skelly-dev/ripple/internal/logging"
	"github.com/skelly-dev/ripple/internal/metrics"
)

// Issue captures a non-fatal problem met while scanning a file.
type Issue struct {
	File     string `json:"file"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// Result is the outcome of one extraction run.
type Result struct {
	Root    string
	Modules []facts.ModuleFacts
	// Hashes maps module ID to content hash.
	Hashes map[string]string
	Issues []Issue
}

// Extractor scans a directory tree.
type Extractor struct {
	workers     int
	ignoreRules []string
	logger      *slog.Logger
	recorder    *metrics.Recorder
	progress    ProgressFunc
}

// ProgressFunc is told about each file as it finishes. Calls are serialized.
type ProgressFunc func(file string, done, total int)

type Option func(*Extractor)

// WithWorkers bounds parallel parsing. Values below 1 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Extractor) { e.workers = n }
}

// WithIgnoreRules adds gitignore-style rules after the project's .rippleignore.
func WithIgnoreRules(rules []string) Option {
	return func(e *Extractor) { e.ignoreRules = append(e.ignoreRules, rules...) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Extractor) { e.recorder = r }
}

func WithProgress(fn ProgressFunc) Option {
	return func(e *Extractor) { e.progress = fn }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	e.logger = logging.OrDiscard(e.logger)
	return e
}

type fileResult struct {
	record  facts.ModuleFacts
	hash    string
	issue   *Issue
	skipped bool
}

// Extract walks root and parses every supported, non-ignored file.
func (e *Extractor) Extract(ctx context.Context, root string) (*Result, error) {
	matcher, err := ignore.Load(root, e.ignoreRules)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Root:    root,
		Modules: make([]facts.ModuleFacts, 0),
		Hashes:  make(map[string]string),
		Issues:  make([]Issue, 0),
	}

	files, walkIssues, err := collectFiles(root, matcher)
	if err != nil {
		return nil, err
	}
	result.Issues = append(result.Issues, walkIssues...)

	results := make([]fileResult, len(files))
	jobs := make(chan int, len(files))
	for i := range files {
		jobs <- i
	}
	close(jobs)

	var (
		progressMu sync.Mutex
		done       int
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < min(e.workers, max(len(files), 1)); w++ {
		g.Go(func() error {
			p := newSourceParser()
			defer p.close()
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.parseFile(gctx, p, root, files[i])
				if e.progress != nil {
					progressMu.Lock()
					done++
					e.progress(files[i], done, len(files))
					progressMu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract %s: %w", root, err)
	}

	for _, r := range results {
		if r.issue != nil {
			result.Issues = append(result.Issues, *r.issue)
		}
		if r.skipped {
			continue
		}
		result.Modules = append(result.Modules, r.record)
		result.Hashes[r.record.ModuleID] = r.hash
	}

	sort.Slice(result.Modules, func(i, j int) bool {
		return result.Modules[i].ModuleID < result.Modules[j].ModuleID
	})
	sort.Slice(result.Issues, func(i, j int) bool {
		if result.Issues[i].File == result.Issues[j].File {
			return result.Issues[i].Message < result.Issues[j].Message
		}
		return result.Issues[i].File < result.Issues[j].File
	})

	e.logger.Info("extracted module facts",
		"root", root,
		"modules", len(result.Modules),
		"issues", len(result.Issues),
		"workers", e.workers,
	)
	return result, nil
}

func (e *Extractor) parseFile(ctx context.Context, p *sourceParser, root, relPath string) fileResult {
	moduleID := facts.NormalizeModuleID(relPath)
	content, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		e.recorder.ObserveExtraction("error")
		e.logger.Warn("read failed", "file", moduleID, "error", err)
		return fileResult{skipped: true, issue: &Issue{File: moduleID, Severity: "error", Message: err.Error()}}
	}

	record, recovered, err := p.parse(ctx, moduleID, content)
	if err != nil {
		e.recorder.ObserveExtraction("error")
		e.logger.Warn("parse failed", "file", moduleID, "error", err)
		return fileResult{skipped: true, issue: &Issue{File: moduleID, Severity: "error", Message: err.Error()}}
	}

	out := fileResult{record: record, hash: fileutil.HashBytes(content)}
	if recovered {
		e.recorder.ObserveExtraction("recovered")
		e.logger.Debug("syntax errors recovered", "file", moduleID)
		out.issue = &Issue{File: moduleID, Severity: "warning", Message: "syntax errors; facts may be incomplete"}
		return out
	}
	e.recorder.ObserveExtraction("ok")
	return out
}

// collectFiles returns the slash-separated paths of supported files under
// root, sorted. Unreadable directories become warnings.
func collectFiles(root string, matcher *ignore.Matcher) ([]string, []Issue, error) {
	files := make([]string, 0)
	issues := make([]Issue, 0)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		relPath = filepath.ToSlash(relPath)

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			issues = append(issues, Issue{File: relPath, Severity: "warning", Message: fmt.Sprintf("walk error: %v", walkErr)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if relPath != "." && matcher.ShouldIgnore(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !Supported(relPath) {
			return nil
		}
		files = append(files, relPath)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, issues, nil
}

// ScanHashes hashes every file Extract would parse, without parsing.
func ScanHashes(root string, ignoreRules []string) (map[string]string, error) {
	matcher, err := ignore.Load(root, ignoreRules)
	if err != nil {
		return nil, err
	}
	files, _, err := collectFiles(root, matcher)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(files))
	for _, relPath := range files {
		hash, err := fileutil.HashFile(filepath.Join(root, relPath))
		if err != nil {
			return nil, err
		}
		hashes[facts.NormalizeModuleID(relPath)] = hash
	}
	return hashes, nil
}
