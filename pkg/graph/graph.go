// Package graph provides the reachability and dominance queries the validator
// and the variable catalog run over a flow.
package graph

import (
	"math/bits"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Graph is an immutable adjacency view of a flow. Node order follows the flow.
// Edges to unknown nodes are dropped, and for duplicate IDs only the first node counts.
type Graph struct {
	ids   []string
	index map[string]int
	succ  [][]int
	pred  [][]int
}

// FromFlow builds the adjacency view of f.
func FromFlow(f *domain.Flow) *Graph {
	g := &Graph{index: make(map[string]int, len(f.Nodes))}
	var owners []*domain.Node
	for _, n := range f.Nodes {
		if _, dup := g.index[n.ID]; dup {
			continue
		}
		g.index[n.ID] = len(g.ids)
		g.ids = append(g.ids, n.ID)
		owners = append(owners, n)
	}
	g.succ = make([][]int, len(g.ids))
	g.pred = make([][]int, len(g.ids))
	for i, n := range owners {
		for _, e := range n.Edges {
			j, ok := g.index[e.Destination]
			if !ok {
				continue
			}
			g.succ[i] = append(g.succ[i], j)
			g.pred[j] = append(g.pred[j], i)
		}
	}
	return g
}

// Len returns the number of distinct nodes.
func (g *Graph) Len() int { return len(g.ids) }

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Reachable returns the set of nodes reachable from start, start included.
// The set is empty when start is unknown.
func (g *Graph) Reachable(start string) map[string]bool {
	seen := make(map[string]bool)
	s, ok := g.index[start]
	if !ok {
		return seen
	}
	queue := []int{s}
	seen[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nxt := range g.succ[cur] {
			id := g.ids[nxt]
			if !seen[id] {
				seen[id] = true
				queue = append(queue, nxt)
			}
		}
	}
	return seen
}

// CanReach returns the set of nodes from which at least one of targets is reachable.
// Targets are included.
func (g *Graph) CanReach(targets []string) map[string]bool {
	seen := make(map[string]bool)
	var queue []int
	for _, t := range targets {
		if i, ok := g.index[t]; ok && !seen[t] {
			seen[t] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range g.pred[cur] {
			id := g.ids[p]
			if !seen[id] {
				seen[id] = true
				queue = append(queue, p)
			}
		}
	}
	return seen
}

// bitset is a fixed-size set of node indexes.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) fill(n int) {
	for i := range b {
		b[i] = ^uint64(0)
	}
	if r := n % 64; r != 0 {
		b[len(b)-1] = (1 << uint(r)) - 1
	}
}

func (b bitset) intersect(o bitset) {
	for i := range b {
		b[i] &= o[i]
	}
}

func (b bitset) equal(o bitset) bool {
	for i := range b {
		if b[i] != o[i] {
			return false
		}
	}
	return true
}

func (b bitset) count() int {
	c := 0
	for _, w := range b {
		c += bits.OnesCount64(w)
	}
	return c
}

// Dominators holds the dominator sets of every node reachable from a start node.
type Dominators struct {
	g     *Graph
	start int
	dom   []bitset // nil for unreachable nodes
}

// Dominators computes, for every node reachable from start, the set of nodes that
// lie on every path from start to it. The computation is the classic iterative
// dataflow fixpoint, run in reverse post-order.
func (g *Graph) Dominators(start string) *Dominators {
	d := &Dominators{g: g, start: -1, dom: make([]bitset, len(g.ids))}
	s, ok := g.index[start]
	if !ok {
		return d
	}
	d.start = s

	order := g.reversePostOrder(s)
	n := len(g.ids)
	for _, v := range order {
		d.dom[v] = newBitset(n)
		if v == s {
			d.dom[v].set(s)
		} else {
			d.dom[v].fill(n)
		}
	}

	tmp := newBitset(n)
	for changed := true; changed; {
		changed = false
		for _, v := range order {
			if v == s {
				continue
			}
			tmp.fill(n)
			for _, p := range g.pred[v] {
				if d.dom[p] != nil {
					tmp.intersect(d.dom[p])
				}
			}
			tmp.set(v)
			if !tmp.equal(d.dom[v]) {
				copy(d.dom[v], tmp)
				changed = true
			}
		}
	}
	return d
}

func (g *Graph) reversePostOrder(start int) []int {
	visited := make([]bool, len(g.ids))
	var post []int
	var walk func(int)
	walk = func(v int) {
		visited[v] = true
		for _, w := range g.succ[v] {
			if !visited[w] {
				walk(w)
			}
		}
		post = append(post, v)
	}
	walk(start)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable reports whether id was reachable from the start node.
func (d *Dominators) Reachable(id string) bool {
	i, ok := d.g.index[id]
	return ok && d.dom[i] != nil
}

// Dominates reports whether every path from start to b passes through a.
// Every node dominates itself. Unreachable nodes are dominated by nothing.
func (d *Dominators) Dominates(a, b string) bool {
	ai, ok := d.g.index[a]
	if !ok {
		return false
	}
	bi, ok := d.g.index[b]
	if !ok || d.dom[bi] == nil {
		return false
	}
	return d.dom[bi].has(ai)
}

// StrictlyDominates is Dominates with a != b.
func (d *Dominators) StrictlyDominates(a, b string) bool {
	return a != b && d.Dominates(a, b)
}

// Of returns the dominators of id in flow order.
func (d *Dominators) Of(id string) []string {
	i, ok := d.g.index[id]
	if !ok || d.dom[i] == nil {
		return nil
	}
	out := make([]string, 0, d.dom[i].count())
	for j, name := range d.g.ids {
		if d.dom[i].has(j) {
			out = append(out, name)
		}
	}
	return out
}

// Immediate returns the immediate dominator of id, or "" for the start node
// and unreachable nodes.
func (d *Dominators) Immediate(id string) string {
	i, ok := d.g.index[id]
	if !ok || d.dom[i] == nil || i == d.start {
		return ""
	}
	// The immediate dominator is the strict dominator with the largest dominator set.
	best, bestCount := -1, -1
	for j := range d.g.ids {
		if j == i || !d.dom[i].has(j) {
			continue
		}
		if c := d.dom[j].count(); c > bestCount {
			best, bestCount = j, c
		}
	}
	if best < 0 {
		return ""
	}
	return d.g.ids[best]
}
