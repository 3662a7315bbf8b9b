/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ortho

import (
	"container/heap"
	"math"
	"sort"

	"goconnector/internal/vector"
)

// Direction of travel between two grid points.
type Direction int

const (
	DirNone Direction = iota
	DirRight
	DirLeft
	DirDown
	DirUp
)

const numDirs = 5

func dirOf(a, b vector.Vec2) Direction {
	switch {
	case b.X > a.X:
		return DirRight
	case b.X < a.X:
		return DirLeft
	case b.Y > a.Y:
		return DirDown
	case b.Y < a.Y:
		return DirUp
	}
	return DirNone
}

// axisDir snaps a tangent to its dominant axis.
func axisDir(t vector.Vec2) vector.Vec2 {
	switch {
	case t.IsZero():
		return vector.Vec2{}
	case math.Abs(t.X) >= math.Abs(t.Y):
		return vector.Vec2{X: math.Copysign(1, t.X)}
	default:
		return vector.Vec2{Y: math.Copysign(1, t.Y)}
	}
}

func directionOf(v vector.Vec2) Direction { return dirOf(vector.Vec2{}, axisDir(v)) }

// cost is compared lexicographically: length, then bends, then the
// heavier accumulated priority weight.
type cost struct {
	Length float64
	Bends  int
	Weight int
}

func (a cost) less(b cost) bool {
	if !vector.Near(a.Length, b.Length, 1e-9) {
		return a.Length < b.Length
	}
	if a.Bends != b.Bends {
		return a.Bends < b.Bends
	}
	return a.Weight > b.Weight
}

// searchNode is a state in the A* search: a grid point entered in a direction.
type searchNode struct {
	state int
	g     cost
	f     cost
	index int
}

// NodeQueue is a priority queue of search states.
type NodeQueue []*searchNode

func (nq NodeQueue) Len() int           { return len(nq) }
func (nq NodeQueue) Less(i, j int) bool { return nq[i].f.less(nq[j].f) }
func (nq NodeQueue) Swap(i, j int) {
	nq[i], nq[j] = nq[j], nq[i]
	nq[i].index = i
	nq[j].index = j
}

func (nq *NodeQueue) Push(x interface{}) {
	n := x.(*searchNode)
	n.index = len(*nq)
	*nq = append(*nq, n)
}

func (nq *NodeQueue) Pop() interface{} {
	old := *nq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*nq = old[:n-1]
	return node
}

// graph links each candidate to its nearest neighbour along each axis.
type graph struct {
	pts   []candidate
	edges [][]int
}

func buildGraph(cs []candidate, obstacles []vector.Bound) graph {
	g := graph{pts: cs, edges: make([][]int, len(cs))}
	byX := map[float64][]int{}
	byY := map[float64][]int{}
	for i, c := range cs {
		byX[c.P.X] = append(byX[c.P.X], i)
		byY[c.P.Y] = append(byY[c.P.Y], i)
	}
	link := func(ids []int, less func(a, b int) bool) {
		sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })
		for k := 1; k < len(ids); k++ {
			a, b := ids[k-1], ids[k]
			if blocked(cs[a].P, cs[b].P, obstacles) {
				continue
			}
			g.edges[a] = append(g.edges[a], b)
			g.edges[b] = append(g.edges[b], a)
		}
	}
	for _, ids := range byX {
		link(ids, func(a, b int) bool { return cs[a].P.Y < cs[b].P.Y })
	}
	for _, ids := range byY {
		link(ids, func(a, b int) bool { return cs[a].P.X < cs[b].P.X })
	}
	for i := range g.edges {
		sort.Ints(g.edges[i])
	}
	return g
}

// blocked reports whether the axis-aligned segment a-b runs through the open
// interior of any obstacle.
func blocked(a, b vector.Vec2, obstacles []vector.Bound) bool {
	const e = 1e-9
	for _, r := range obstacles {
		if a.Y == b.Y {
			if a.Y <= r.Y+e || a.Y >= r.Y+r.H-e {
				continue
			}
			lo, hi := math.Min(a.X, b.X), math.Max(a.X, b.X)
			if math.Min(hi, r.X+r.W)-math.Max(lo, r.X) > e {
				return true
			}
			continue
		}
		if a.X <= r.X+e || a.X >= r.X+r.W-e {
			continue
		}
		lo, hi := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
		if math.Min(hi, r.Y+r.H)-math.Max(lo, r.Y) > e {
			return true
		}
	}
	return false
}

// shortest runs A* from start to goal over g. startDir is the direction the
// path already travels when entering start; endDir is the direction it must
// leave goal in. Mismatches count as bends.
func (g graph) shortest(start, goal int, startDir, endDir Direction) ([]int, bool) {
	if start == goal {
		return []int{start}, true
	}
	goalP := g.pts[goal].P
	h := func(i int) float64 { return g.pts[i].P.Manhattan(goalP) }

	best := map[int]cost{}
	parent := map[int]int{}
	open := &NodeQueue{}
	heap.Init(open)

	s0 := start*numDirs + int(startDir)
	c0 := cost{Weight: g.pts[start].Weight}
	best[s0] = c0
	heap.Push(open, &searchNode{state: s0, g: c0, f: cost{Length: h(start), Weight: c0.Weight}})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if b, ok := best[cur.state]; ok && b.less(cur.g) {
			continue
		}
		node, dir := cur.state/numDirs, Direction(cur.state%numDirs)
		if node == goal {
			return g.unwind(cur.state, parent), true
		}
		for _, next := range g.edges[node] {
			nd := dirOf(g.pts[node].P, g.pts[next].P)
			nc := cost{
				Length: cur.g.Length + g.pts[node].P.Manhattan(g.pts[next].P),
				Bends:  cur.g.Bends,
				Weight: cur.g.Weight + g.pts[next].Weight,
			}
			if dir != DirNone && nd != dir {
				nc.Bends++
			}
			if next == goal && endDir != DirNone && nd != endDir {
				nc.Bends++
			}
			st := next*numDirs + int(nd)
			if b, ok := best[st]; ok && !nc.less(b) {
				continue
			}
			best[st] = nc
			parent[st] = cur.state
			heap.Push(open, &searchNode{state: st, g: nc, f: cost{Length: nc.Length + h(next), Bends: nc.Bends, Weight: nc.Weight}})
		}
	}
	return nil, false
}

func (g graph) unwind(state int, parent map[int]int) []int {
	var out []int
	for {
		out = append(out, state/numDirs)
		p, ok := parent[state]
		if !ok {
			break
		}
		state = p
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
