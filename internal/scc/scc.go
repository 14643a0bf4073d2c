// Package scc computes strongly connected components over the
// Internal->Internal subgraph, for quench policies that want to bound
// themselves to the strongly-connected region containing a detected
// cycle.
package scc

// Graph is an adjacency list over local Internal bit indices
// (0..numInternal), built from Internal->Internal connections only.
type Graph struct {
	adj [][]int32
	n   int
}

// NewGraph allocates a graph over n internal bits.
func NewGraph(n int) *Graph {
	return &Graph{adj: make([][]int32, n), n: n}
}

// AddEdge records an Internal->Internal connection u->v (local indices).
func (g *Graph) AddEdge(u, v int) {
	g.adj[u] = append(g.adj[u], int32(v))
}

// Info is the result of SCC analysis.
type Info struct {
	ComponentOf []int32   // local bit -> component id
	Components  [][]int32 // component id -> member local bits
}

// Analyze runs Tarjan's algorithm over g.
func Analyze(g *Graph) *Info {
	n := g.n
	idx := make([]int32, n)
	low := make([]int32, n)
	onStack := make([]bool, n)
	comp := make([]int32, n)
	for i := range idx {
		idx[i] = -1
		comp[i] = -1
	}
	var stack []int32
	var callStack []frame
	counter := int32(0)
	var compCount int32
	var components [][]int32

	for start := 0; start < n; start++ {
		if idx[start] != -1 {
			continue
		}
		callStack = append(callStack[:0:0], frame{v: int32(start), i: 0})
		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			v := top.v
			if top.i == 0 {
				idx[v] = counter
				low[v] = counter
				counter++
				stack = append(stack, v)
				onStack[v] = true
			}
			recursed := false
			for top.i < int32(len(g.adj[v])) {
				w := g.adj[v][top.i]
				top.i++
				if idx[w] == -1 {
					callStack = append(callStack, frame{v: w, i: 0})
					recursed = true
					break
				} else if onStack[w] {
					if idx[w] < low[v] {
						low[v] = idx[w]
					}
				}
			}
			if recursed {
				continue
			}
			// done with v
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := &callStack[len(callStack)-1]
				if low[v] < low[parent.v] {
					low[parent.v] = low[v]
				}
			}
			if low[v] == idx[v] {
				var members []int32
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = compCount
					members = append(members, w)
					if w == v {
						break
					}
				}
				components = append(components, members)
				compCount++
			}
		}
	}

	return &Info{
		ComponentOf: comp,
		Components:  components,
	}
}

type frame struct {
	v int32
	i int32
}
