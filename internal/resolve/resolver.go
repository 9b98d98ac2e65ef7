// Package resolve maps declared dependency references to known module IDs.
//
// Resolution is checked against the set of modules handed to New, never the
// filesystem, so the same inputs always give the same answers.
package resolve

import (
	"path"
	"strings"
)

// DefaultSuffixes are tried in order after joining a reference onto its base.
var DefaultSuffixes = []string{
	"",
	".ts",
	".tsx",
	".js",
	".jsx",
	".mjs",
	".cjs",
	"/index.ts",
	"/index.tsx",
	"/index.js",
	"/index.jsx",
}

// Resolver resolves references relative to the module that declares them.
type Resolver struct {
	known    map[string]struct{}
	suffixes []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSuffixes replaces the candidate suffix list. An empty list keeps the defaults.
func WithSuffixes(suffixes []string) Option {
	return func(r *Resolver) {
		if len(suffixes) == 0 {
			return
		}
		r.suffixes = append([]string(nil), suffixes...)
	}
}

// New creates a resolver over the given module IDs.
func New(moduleIDs []string, opts ...Option) *Resolver {
	r := &Resolver{
		known:    make(map[string]struct{}, len(moduleIDs)),
		suffixes: append([]string(nil), DefaultSuffixes...),
	}
	for _, id := range moduleIDs {
		r.known[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the module that reference names when declared from module from.
// Relative references ("./x", "../x") are joined onto from's directory; a leading
// "/" is root relative. Bare references are tried against from's directory and
// then the root.
func (r *Resolver) Resolve(from, reference string) (string, bool) {
	reference = strings.TrimSpace(strings.Trim(strings.TrimSpace(reference), `"'`+"`"))
	if reference == "" {
		return "", false
	}
	reference = strings.ReplaceAll(reference, "\\", "/")

	for _, base := range r.bases(from, reference) {
		for _, suffix := range r.suffixes {
			candidate := base + suffix
			if _, ok := r.known[candidate]; ok {
				return candidate, true
			}
		}
	}
	return "", false
}

func (r *Resolver) bases(from, reference string) []string {
	dir := path.Dir(from)
	if strings.HasPrefix(reference, "/") {
		return cleanBases(strings.TrimPrefix(reference, "/"))
	}
	if isRelative(reference) {
		return cleanBases(path.Join(dir, reference))
	}
	return cleanBases(path.Join(dir, reference), reference)
}

func isRelative(reference string) bool {
	return reference == "." || reference == ".." ||
		strings.HasPrefix(reference, "./") || strings.HasPrefix(reference, "../")
}

// cleanBases drops candidates that escape the root and removes duplicates.
func cleanBases(candidates ...string) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		candidate = path.Clean(candidate)
		if candidate == "." || candidate == ".." || strings.HasPrefix(candidate, "../") {
			continue
		}
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}
