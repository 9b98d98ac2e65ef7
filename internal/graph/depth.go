package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	stateUnvisited = iota
	stateOnPath
	stateDone
)

// computeDepths returns, for every module, the length in edges of the longest
// dependency chain below it. Strongly connected components count as a single
// node: every member of a cycle group gets the group's depth, which only
// depends on the edges leaving the group.
func computeDepths(g *Graph) []int {
	comp, count := components(g)

	compDeps := make([][]int, count)
	for i, targets := range g.deps {
		for _, j := range targets {
			if comp[i] != comp[j] {
				compDeps[comp[i]] = append(compDeps[comp[i]], comp[j])
			}
		}
	}
	compDepth := longestChains(compDeps)

	depth := make([]int, len(g.modules))
	for i := range depth {
		depth[i] = compDepth[comp[i]]
	}
	return depth
}

// components labels every module with its strongly connected component.
func components(g *Graph) ([]int, int) {
	dg := simple.NewDirectedGraph()
	for i := range g.modules {
		dg.AddNode(simple.Node(i))
	}
	for i, targets := range g.deps {
		for _, j := range targets {
			dg.SetEdge(dg.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}

	sccs := topo.TarjanSCC(dg)
	comp := make([]int, len(g.modules))
	for k, scc := range sccs {
		for _, n := range scc {
			comp[n.ID()] = k
		}
	}
	return comp, len(sccs)
}

// longestChains computes longest path lengths over an acyclic adjacency list
// with an iterative post-order walk.
func longestChains(adj [][]int) []int {
	n := len(adj)
	depth := make([]int, n)
	state := make([]int, n)

	for root := 0; root < n; root++ {
		if state[root] != stateUnvisited {
			continue
		}
		state[root] = stateOnPath
		stack := []dfsFrame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(adj[top.node]) {
				next := adj[top.node][top.next]
				top.next++
				switch state[next] {
				case stateUnvisited:
					state[next] = stateOnPath
					stack = append(stack, dfsFrame{node: next})
				case stateDone:
					depth[top.node] = max(depth[top.node], depth[next]+1)
				}
				continue
			}

			finished := top.node
			state[finished] = stateDone
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := stack[len(stack)-1].node
				depth[parent] = max(depth[parent], depth[finished]+1)
			}
		}
	}
	return depth
}

// CheckInvariants verifies that every reverse adjacency list mirrors the
// forward lists on both layers.
func (g *Graph) CheckInvariants() error {
	forward := make(map[[2]string]bool)
	for _, node := range g.modules {
		for _, dep := range node.DeclaredDependencies {
			forward[[2]string{node.ID, dep}] = true
		}
	}
	reverse := 0
	for _, node := range g.modules {
		for _, dependent := range node.Dependents {
			if !forward[[2]string{dependent, node.ID}] {
				return fmt.Errorf("module %s lists dependent %s without a matching dependency", node.ID, dependent)
			}
			reverse++
		}
	}
	if reverse != len(forward) {
		return fmt.Errorf("module layer has %d dependencies but %d dependents", len(forward), reverse)
	}

	calls := make(map[[2]SymbolID]bool)
	for _, node := range g.symbols {
		for _, callee := range node.Calls {
			calls[[2]SymbolID{node.ID, callee}] = true
		}
	}
	reverse = 0
	for _, node := range g.symbols {
		for _, caller := range node.CalledBy {
			if !calls[[2]SymbolID{caller, node.ID}] {
				return fmt.Errorf("symbol %s lists caller %s without a matching call", node.ID, caller)
			}
			reverse++
		}
	}
	if reverse != len(calls) {
		return fmt.Errorf("symbol layer has %d calls but %d callers", len(calls), reverse)
	}
	return nil
}
