package ledger

import "container/heap"

// The dependency graph lives in two incrementally maintained structures:
// dependents maps a task to the tasks that list it as a dependency, and
// waiting counts each task's not-yet-completed dependencies. Completing a
// task decrements its dependents' counters, so readiness queries never
// rescan the graph.

// wouldCycle runs Kahn's algorithm over the augmented graph: every existing
// task plus the candidate node and its edges. The existing graph is acyclic
// by induction, so a leftover node after the sweep implicates the addition.
// O(V+E).
func (l *Ledger) wouldCycle(newID string, deps []string) bool {
	n := len(l.order) + 1
	index := make(map[string]int, n)
	for i, id := range l.order {
		index[id] = i
	}
	index[newID] = n - 1

	outgoing := make([][]int, n)
	indeg := make([]int, n)
	addEdge := func(from, to string) {
		f, okF := index[from]
		t, okT := index[to]
		if !okF || !okT {
			return
		}
		outgoing[f] = append(outgoing[f], t)
		indeg[t]++
	}
	// Edges point dependency -> dependent.
	for _, id := range l.order {
		for _, dep := range l.tasks[id].Dependencies {
			addEdge(dep, id)
		}
	}
	for _, dep := range deps {
		addEdge(dep, newID)
	}

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	visited := 0
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		visited++
		for _, v := range outgoing[u] {
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	return visited != n
}

// acyclic reports whether the current graph is a DAG. The empty sentinel
// node has no edges, so it cannot affect the sweep. Load uses this to
// reject hand-edited snapshots.
func (l *Ledger) acyclic() bool {
	return !l.wouldCycle("", nil)
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
