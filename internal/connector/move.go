/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connector

import (
	"math"

	"goconnector/internal/domain"
	"goconnector/internal/ortho"
	"goconnector/internal/vector"
)

const axisTol = 1e-6

// moveOrthogonalInterior moves interior point i to pos. The neighbour
// before i keeps sharing one axis with it and the neighbour after keeps
// sharing the other; the shared axes are pinned. Values within the align
// threshold of the next parallel segment snap onto it. An end neighbour
// never moves: two elbow points are inserted instead.
func (g *Generator) moveOrthogonalInterior(path []domain.PathPoint, i int, pos vector.Vec2) ([]domain.PathPoint, int) {
	n := len(path)
	out := append([]domain.PathPoint(nil), path...)
	p, before, after := out[i], out[i-1], out[i+1]
	horiz := horizontalBefore(before, p, after)

	x, y := pos.X, pos.Y
	if horiz {
		// before shares y, after shares x
		y = g.align(y, after.Y, coord(out, i-2, false))
		x = g.align(x, before.X, coord(out, i+2, true))
	} else {
		x = g.align(x, after.X, coord(out, i-2, true))
		y = g.align(y, before.Y, coord(out, i+2, false))
	}

	moved := p.Moved(vector.Vec2{X: x, Y: y})
	moved.Pinned = domain.PinnedAxis{X: true, Y: true}
	out[i] = moved

	// before
	var head []domain.PathPoint
	if i-1 == 0 && !sharesAxis(before, x, y, horiz) {
		head = g.elbow(before, p, x, y, horiz)
	} else if horiz {
		out[i-1].Y = y
		out[i-1].Pinned.Y = true
	} else {
		out[i-1].X = x
		out[i-1].Pinned.X = true
	}
	// after
	var tail []domain.PathPoint
	if i+1 == n-1 && !sharesAxis(after, x, y, !horiz) {
		tail = g.elbow(after, p, x, y, !horiz)
	} else if horiz {
		out[i+1].X = x
		out[i+1].Pinned.X = true
	} else {
		out[i+1].Y = y
		out[i+1].Pinned.Y = true
	}

	if head == nil && tail == nil {
		return out, i
	}
	res := make([]domain.PathPoint, 0, n+4)
	res = append(res, out[:i]...)
	res = append(res, head...)
	res = append(res, out[i])
	for k := len(tail) - 1; k >= 0; k-- {
		res = append(res, tail[k])
	}
	res = append(res, out[i+1:]...)
	return res, i + len(head)
}

// elbow returns the two points joining the fixed end e to a moved
// neighbour at (x, y): a short stub leaving e along the old segment axis,
// then a corner on the moved axis. horiz tells whether the segment from e
// was horizontal.
func (g *Generator) elbow(e, p domain.PathPoint, x, y float64, horiz bool) []domain.PathPoint {
	stub := g.opts.Router.Clearance
	if horiz {
		dir := stubDir(e.Tangent.X, p.X-e.X)
		s1 := domain.P(e.X+dir*stub, e.Y)
		s2 := domain.PathPoint{X: s1.X, Y: y, Pinned: domain.PinnedAxis{Y: true}}
		return []domain.PathPoint{s1, s2}
	}
	dir := stubDir(e.Tangent.Y, p.Y-e.Y)
	s1 := domain.P(e.X, e.Y+dir*stub)
	s2 := domain.PathPoint{X: x, Y: s1.Y, Pinned: domain.PinnedAxis{X: true}}
	return []domain.PathPoint{s1, s2}
}

func stubDir(tangent, toward float64) float64 {
	switch {
	case math.Abs(tangent) > axisTol:
		return math.Copysign(1, tangent)
	case math.Abs(toward) > axisTol:
		return math.Copysign(1, toward)
	}
	return 1
}

// sharesAxis reports whether e already lies on the moved axis, so it can
// stay where it is.
func sharesAxis(e domain.PathPoint, x, y float64, horiz bool) bool {
	if horiz {
		return vector.Near(e.Y, y, axisTol)
	}
	return vector.Near(e.X, x, axisTol)
}

// horizontalBefore reports whether the segment from before to p runs
// horizontally. A zero-length segment takes the orientation that keeps the
// path alternating.
func horizontalBefore(before, p, after domain.PathPoint) bool {
	sameY := vector.Near(before.Y, p.Y, axisTol)
	sameX := vector.Near(before.X, p.X, axisTol)
	switch {
	case sameY && !sameX:
		return true
	case sameX && !sameY:
		return false
	}
	return vector.Near(after.X, p.X, axisTol)
}

// coord returns the x or y of path[i], or NaN when i is outside the path.
func coord(path []domain.PathPoint, i int, x bool) float64 {
	if i < 0 || i >= len(path) {
		return math.NaN()
	}
	if x {
		return path[i].X
	}
	return path[i].Y
}

// align snaps v to the nearest reference value within the align threshold.
func (g *Generator) align(v float64, refs ...float64) float64 {
	best, bestD := v, g.opts.AlignThreshold
	for _, r := range refs {
		if math.IsNaN(r) {
			continue
		}
		if d := math.Abs(v - r); d <= bestD {
			best, bestD = r, d
		}
	}
	return best
}

// moveOrthogonalEnd moves end point index to pt and re-routes the first
// (or last) segment onto the axis of the neighbouring fixed segment. The
// returned index points at the moved end.
func (g *Generator) moveOrthogonalEnd(c *domain.Connector, path []domain.PathPoint, index int, pt domain.PathPoint, bound *vector.Bound) ([]domain.PathPoint, int, error) {
	n := len(path)
	moving := ortho.End{Point: pt, Bound: bound}
	if n == 2 {
		other, conn := path[1], c.Target
		if index == 1 {
			other, conn = path[0], c.Source
		}
		fixed := g.end(conn, other)
		if index == 0 {
			out, err := g.router.Route(moving, fixed)
			return out, 0, err
		}
		out, err := g.router.Route(fixed, moving)
		if err != nil {
			return nil, index, err
		}
		return out, len(out) - 1, nil
	}

	if index == 0 {
		head, err := g.router.RouteToLine(moving, vector.Line{A: path[1].Vec(), B: path[2].Vec()})
		if err != nil {
			return nil, index, err
		}
		if len(head) > 1 {
			head[len(head)-1].Pinned = path[1].Pinned
		}
		out := make([]domain.PathPoint, 0, len(head)+n-2)
		out = append(out, head...)
		out = append(out, path[2:]...)
		return out, 0, nil
	}

	tail, err := g.router.RouteToLine(moving, vector.Line{A: path[n-2].Vec(), B: path[n-3].Vec()})
	if err != nil {
		return nil, index, err
	}
	if len(tail) > 1 {
		tail[len(tail)-1].Pinned = path[n-2].Pinned
	}
	out := make([]domain.PathPoint, 0, len(tail)+n-2)
	out = append(out, path[:n-2]...)
	for k := len(tail) - 1; k >= 0; k-- {
		out = append(out, tail[k])
	}
	return out, len(out) - 1, nil
}
