// Package critpath enumerates long dependency chains running from entry modules
// into the most depended-upon hubs.
//
// Longest simple path is NP-hard in general, so the search is explicitly
// bounded: per (entry, hub) pair, per path length and per call. Whenever a
// bound cuts the search short the result says so through Capped.
package critpath

import (
	"log/slog"
	"sort"

	"github.com/skelly-dev/ripple/internal/graph"
	"github.com/skelly-dev/ripple/internal/logging"
	"github.com/skelly-dev/ripple/internal/metrics"
)

const (
	DefaultHighFanIn       = 5
	DefaultHubCount        = 5
	DefaultMaxResults      = 5
	DefaultMaxPathsPerPair = 64
	DefaultMaxPathLength   = 24
	DefaultMaxSteps        = 200000
)

// Options bounds the enumeration.
type Options struct {
	HighFanIn       int
	HubCount        int
	MaxResults      int
	MaxPathsPerPair int
	// MaxPathLength counts nodes, not edges.
	MaxPathLength int
	MaxSteps      int

	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// DefaultOptions returns the stock bounds.
func DefaultOptions() Options {
	return Options{
		HighFanIn:       DefaultHighFanIn,
		HubCount:        DefaultHubCount,
		MaxResults:      DefaultMaxResults,
		MaxPathsPerPair: DefaultMaxPathsPerPair,
		MaxPathLength:   DefaultMaxPathLength,
		MaxSteps:        DefaultMaxSteps,
	}
}

// Hub is a module ranked by how many modules depend on it directly.
type Hub struct {
	Module     string `json:"module"`
	Dependents int    `json:"dependents"`
}

// Result holds the ranked paths and the hubs and entries they connect.
type Result struct {
	Paths     [][]string `json:"paths"`
	Hubs      []Hub      `json:"hubs"`
	Entries   []string   `json:"entries"`
	HighFanIn []string   `json:"highFanIn"`
	Capped    bool       `json:"capped"`
	Steps     int        `json:"steps"`
}

type searcher struct {
	g    *graph.Graph
	opts Options

	steps  int
	capped bool
	best   [][]int
}

// Find ranks hubs and entries and returns the longest bounded paths between them.
func Find(g *graph.Graph, opts Options) Result {
	opts = withDefaults(opts)
	logger := logging.OrDiscard(opts.Logger)
	res := Result{
		Paths:     make([][]string, 0),
		Hubs:      make([]Hub, 0),
		Entries:   make([]string, 0),
		HighFanIn: make([]string, 0),
	}
	if g == nil {
		return res
	}

	ranked := make([]int, 0)
	entries := make([]int, 0)
	for i := 0; i < g.NumModules(); i++ {
		n := len(g.DependentIndices(i))
		switch {
		case n == 0:
			entries = append(entries, i)
		case n > opts.HighFanIn:
			res.HighFanIn = append(res.HighFanIn, g.ModuleAt(i))
			ranked = append(ranked, i)
		default:
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return len(g.DependentIndices(ranked[a])) > len(g.DependentIndices(ranked[b]))
	})
	if len(ranked) > opts.HubCount {
		ranked = ranked[:opts.HubCount]
	}
	for _, i := range ranked {
		res.Hubs = append(res.Hubs, Hub{Module: g.ModuleAt(i), Dependents: len(g.DependentIndices(i))})
	}
	for _, i := range entries {
		res.Entries = append(res.Entries, g.ModuleAt(i))
	}

	s := &searcher{g: g, opts: opts}
search:
	for _, hub := range ranked {
		reachesHub := s.ancestors(hub)
		for _, entry := range entries {
			if !reachesHub[entry] {
				continue
			}
			if !s.searchPair(entry, hub, reachesHub) {
				break search
			}
		}
	}

	for _, path := range s.best {
		ids := make([]string, len(path))
		for k, i := range path {
			ids[k] = g.ModuleAt(i)
		}
		res.Paths = append(res.Paths, ids)
	}
	res.Capped = s.capped
	res.Steps = s.steps

	opts.Metrics.ObserveSearch(s.steps, s.capped)
	logger.Debug("critical paths enumerated",
		"entries", len(entries),
		"hubs", len(ranked),
		"paths", len(res.Paths),
		"steps", s.steps,
		"capped", s.capped,
	)
	return res
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.HighFanIn <= 0 {
		opts.HighFanIn = def.HighFanIn
	}
	if opts.HubCount <= 0 {
		opts.HubCount = def.HubCount
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = def.MaxResults
	}
	if opts.MaxPathsPerPair <= 0 {
		opts.MaxPathsPerPair = def.MaxPathsPerPair
	}
	if opts.MaxPathLength < 2 {
		opts.MaxPathLength = def.MaxPathLength
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	return opts
}

// ancestors marks every module that can reach hub along dependency edges,
// hub included. The pair search never descends outside this set.
func (s *searcher) ancestors(hub int) []bool {
	marked := make([]bool, s.g.NumModules())
	marked[hub] = true
	worklist := []int{hub}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, dep := range s.g.DependentIndices(cur) {
			if !marked[dep] {
				marked[dep] = true
				worklist = append(worklist, dep)
			}
		}
	}
	return marked
}

type frame struct {
	node int
	next int
}

// searchPair enumerates simple paths from entry to hub. It returns false once
// the global step budget is spent.
func (s *searcher) searchPair(entry, hub int, reachesHub []bool) bool {
	onPath := make([]bool, s.g.NumModules())
	path := []int{entry}
	onPath[entry] = true
	stack := []frame{{node: entry}}
	found := 0

	for len(stack) > 0 {
		if s.steps >= s.opts.MaxSteps {
			s.capped = true
			return false
		}
		top := &stack[len(stack)-1]
		deps := s.g.DependencyIndices(top.node)
		if top.next < len(deps) {
			next := deps[top.next]
			top.next++
			if onPath[next] || !reachesHub[next] {
				continue
			}
			if len(path) >= s.opts.MaxPathLength {
				s.capped = true
				continue
			}
			s.steps++
			if next == hub {
				if found >= s.opts.MaxPathsPerPair {
					s.capped = true
					return true
				}
				s.offer(append(append(make([]int, 0, len(path)+1), path...), hub))
				found++
				continue
			}
			onPath[next] = true
			path = append(path, next)
			stack = append(stack, frame{node: next})
			continue
		}
		onPath[top.node] = false
		path = path[:len(path)-1]
		stack = stack[:len(stack)-1]
	}
	return true
}

// offer keeps path if it ranks among the longest seen so far.
func (s *searcher) offer(path []int) {
	k := sort.Search(len(s.best), func(i int) bool { return ranksBefore(path, s.best[i]) })
	if k >= s.opts.MaxResults {
		return
	}
	s.best = append(s.best, nil)
	copy(s.best[k+1:], s.best[k:])
	s.best[k] = path
	if len(s.best) > s.opts.MaxResults {
		s.best = s.best[:s.opts.MaxResults]
	}
}

// ranksBefore orders longer paths first, then lexicographically. Module
// indices follow ID order, so comparing indices compares IDs.
func ranksBefore(a, b []int) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
