// Package ignore decides which paths the extractor skips.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the per-project ignore file read from the scan root.
const FileName = ".rippleignore"

// DefaultRules are applied before any user rule, so user negations can
// re-include them.
var DefaultRules = []string{
	".git/",
	".ripple/",
	"node_modules/",
	"bower_components/",
	"dist/",
	"build/",
	"coverage/",
	"*.min.js",
	"*.d.ts",
}

// Matcher applies gitignore rules with "last rule wins" behavior.
type Matcher struct {
	rules *gitignore.GitIgnore
	lines []string
}

// NewMatcher builds a matcher from the default rules followed by userRules.
func NewMatcher(userRules []string) *Matcher {
	lines := make([]string, 0, len(DefaultRules)+len(userRules))
	lines = append(lines, DefaultRules...)
	for _, rule := range userRules {
		rule = strings.TrimSpace(rule)
		if rule == "" || strings.HasPrefix(rule, "#") {
			continue
		}
		lines = append(lines, rule)
	}
	return &Matcher{rules: gitignore.CompileIgnoreLines(lines...), lines: lines}
}

// Load reads FileName from root, if present, and appends extra rules after it.
func Load(root string, extra []string) (*Matcher, error) {
	rules, err := ReadRules(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	return NewMatcher(append(rules, extra...)), nil
}

// ReadRules returns the non-comment lines of an ignore file. A missing file
// yields no rules.
func ReadRules(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return rules, nil
}

// ShouldIgnore reports whether relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	if isDir {
		relPath += "/"
	}
	return m.rules.MatchesPath(relPath)
}

// Rules returns the effective rule list.
func (m *Matcher) Rules() []string {
	return append([]string(nil), m.lines...)
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
