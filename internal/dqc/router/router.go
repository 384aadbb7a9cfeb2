package router

import (
	"sort"

	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// Move relocates one logical qubit between partitions
type Move struct {
	Qubit  int
	Source int
	Dest   int
}

// Plan is the ordered decomposition of a reassignment: every batch closed by a
// cycle of partitions comes first, the residual moves last
type Plan struct {
	Batches [][]Move
	// CycleBatches is the number of leading batches that came from cycles
	CycleBatches int
}

// Qubits returns the qubit ids of every batch
func (p *Plan) Qubits() [][]int {
	out := make([][]int, len(p.Batches))
	for i, batch := range p.Batches {
		out[i] = make([]int, len(batch))
		for j, m := range batch {
			out[i][j] = m.Qubit
		}
	}
	return out
}

// Directions returns the (source, destination) pairs matching Qubits
func (p *Plan) Directions() [][][2]int {
	out := make([][][2]int, len(p.Batches))
	for i, batch := range p.Batches {
		out[i] = make([][2]int, len(batch))
		for j, m := range batch {
			out[i][j] = [2]int{m.Source, m.Dest}
		}
	}
	return out
}

// Len returns the total number of moves
func (p *Plan) Len() int {
	n := 0
	for _, batch := range p.Batches {
		n += len(batch)
	}
	return n
}

// partitionGraph is a directed multigraph over partitions with one line per
// moving qubit, the line id being the qubit id
type partitionGraph struct {
	*multi.DirectedGraph
}

func newPartitionGraph(nodes int) partitionGraph {
	g := partitionGraph{multi.NewDirectedGraph()}
	for p := 0; p < nodes; p++ {
		g.AddNode(multi.Node(p))
	}
	return g
}

func (g partitionGraph) addMove(u, v, q int) {
	g.SetLine(multi.Line{F: multi.Node(u), T: multi.Node(v), UID: int64(q)})
}

func (g partitionGraph) removeMove(m Move) {
	g.RemoveLine(int64(m.Source), int64(m.Dest), int64(m.Qubit))
}

// qubits returns the ids of the lines from u to v in ascending order
func (g partitionGraph) qubits(u, v int) []int {
	var out []int
	lines := g.Lines(int64(u), int64(v))
	for lines.Next() {
		out = append(out, int(lines.Line().ID()))
	}
	sort.Ints(out)
	return out
}

func (g partitionGraph) successors(u int) []int {
	var out []int
	nodes := g.From(int64(u))
	for nodes.Next() {
		out = append(out, int(nodes.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// simpleCycles enumerates every elementary cycle once, rooted at its smallest
// node, in lexicographic order of the node sequence
func (g partitionGraph) simpleCycles() [][]int {
	found := topo.DirectedCyclesIn(g.DirectedGraph)
	cycles := make([][]int, 0, len(found))
	for _, c := range found {
		// the first node is repeated at the end
		cycle := make([]int, len(c)-1)
		for i := range cycle {
			cycle[i] = int(c[i].ID())
		}
		cycles = append(cycles, rotateToMin(cycle))
	}
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return cycles
}

func rotateToMin(cycle []int) []int {
	lo := 0
	for i, u := range cycle {
		if u < cycle[lo] {
			lo = i
		}
	}
	return append(append([]int(nil), cycle[lo:]...), cycle[:lo]...)
}

// Route decomposes the move from "from" to "to" into cycle batches followed by a
// residual batch. Each qubit whose partition changes appears exactly once.
func Route(from, to []int, numPartitions int) (*Plan, error) {
	if len(from) != len(to) {
		return nil, dqc.InvalidInput("route", "assignment lengths differ: %d and %d", len(from), len(to))
	}

	g := newPartitionGraph(numPartitions)
	for q := range from {
		for _, p := range []int{from[q], to[q]} {
			if p < 0 || p >= numPartitions {
				return nil, dqc.InvalidInput("route", "qubit %d uses unknown partition %d", q, p)
			}
		}
		if from[q] != to[q] {
			g.addMove(from[q], to[q], q)
		}
	}

	var batches [][]Move
	var chosen []Move
	for _, cycle := range g.simpleCycles() {
		batch := make([]Move, 0, len(cycle))
		for i, u := range cycle {
			v := cycle[(i+1)%len(cycle)]
			batch = append(batch, Move{Qubit: g.qubits(u, v)[0], Source: u, Dest: v})
		}
		batches = append(batches, batch)
		chosen = append(chosen, batch...)
	}
	cycleCount := len(batches)

	for _, m := range chosen {
		g.removeMove(m)
	}
	var residual []Move
	for u := 0; u < numPartitions; u++ {
		for _, v := range g.successors(u) {
			for _, q := range g.qubits(u, v) {
				residual = append(residual, Move{Qubit: q, Source: u, Dest: v})
			}
		}
	}
	batches = append(batches, residual)

	plan := &Plan{}
	used := make(map[int]bool)
	for i, batch := range batches {
		kept := make([]Move, 0, len(batch))
		for _, m := range batch {
			if used[m.Qubit] {
				continue
			}
			used[m.Qubit] = true
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			continue
		}
		plan.Batches = append(plan.Batches, kept)
		if i < cycleCount {
			plan.CycleBatches++
		}
	}

	return plan, nil
}
