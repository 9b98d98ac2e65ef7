package graph

import "strings"

type dfsFrame struct {
	node int
	next int
}

// FindCycles reports module-level cycles.
//
// The traversal is an iterative DFS over the dependency edges. Whenever an edge
// points back at a module still on the DFS path, the path suffix starting at
// that module is reported as one cycle. Each module is expanded once, which
// keeps the search O(V+E) at the price of reporting one cycle per back edge
// rather than every elementary cycle in a dense cluster. Symbol-level cycles
// (mutual recursion) are deliberately ignored.
//
// Every cycle is rotated to start at its smallest module ID so the same cycle
// compares equal across snapshots.
func FindCycles(g *Graph) [][]string {
	n := len(g.modules)
	visited := make([]bool, n)
	pathPos := make([]int, n)
	for i := range pathPos {
		pathPos[i] = -1
	}

	cycles := make([][]string, 0)
	seen := make(map[string]bool)

	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		visited[root] = true
		pathPos[root] = 0
		path := []int{root}
		stack := []dfsFrame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.deps[top.node]) {
				next := g.deps[top.node][top.next]
				top.next++

				if pos := pathPos[next]; pos >= 0 {
					cycle := canonicalCycle(g, path[pos:])
					key := CycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, cycle)
					}
					continue
				}
				if visited[next] {
					continue
				}
				visited[next] = true
				pathPos[next] = len(path)
				path = append(path, next)
				stack = append(stack, dfsFrame{node: next})
				continue
			}

			pathPos[top.node] = -1
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return cycles
}

// canonicalCycle rotates members so the smallest index comes first. Arena
// indices follow sorted ID order, so that is also the smallest ID.
func canonicalCycle(g *Graph, members []int) []string {
	start := 0
	for i, idx := range members {
		if idx < members[start] {
			start = i
		}
	}
	out := make([]string, 0, len(members))
	for i := range members {
		out = append(out, g.modules[members[(start+i)%len(members)]].ID)
	}
	return out
}

// CycleKey returns a comparable key for a cycle's node sequence.
func CycleKey(cycle []string) string {
	return strings.Join(cycle, "\x00")
}
