/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ortho generates orthogonal (Manhattan) connector paths that keep
// clear of the bounds of the two connected shapes.
package ortho

import (
	"log/slog"
	"math"

	"goconnector/internal/domain"
	applog "goconnector/internal/log"
	"goconnector/internal/vector"
)

// Defaults used when Options fields are zero.
const (
	DefaultClearance      = 20
	DefaultDedupTolerance = 0.02
	// DegenerateOffset is the length of the line synthesized when a
	// route-to-line target has zero length.
	DegenerateOffset = 10
)

// axisTol is the tolerance for treating two coordinates as one axis value.
const axisTol = 1e-6

// Options tunes the router.
type Options struct {
	// Clearance is kept between the route and each connected shape.
	Clearance float64
	// DedupTolerance merges candidate lines closer than this.
	DedupTolerance float64
}

// End is one end of a route: a resolved point and, when attached, the bound
// of its shape.
type End struct {
	Point domain.PathPoint
	Bound *vector.Bound
}

// Router computes orthogonal paths. It is stateless apart from its options
// and safe for concurrent use.
type Router struct {
	opts Options
	log  *slog.Logger
}

// NewRouter returns a router with defaults filled in.
func NewRouter(opts Options) *Router {
	if opts.Clearance <= 0 {
		opts.Clearance = DefaultClearance
	}
	if opts.DedupTolerance <= 0 {
		opts.DedupTolerance = DefaultDedupTolerance
	}
	return &Router{opts: opts, log: applog.WithComponent("ortho")}
}

func (e End) aabb() *vector.Bound {
	if e.Bound == nil {
		return nil
	}
	b := e.Bound.AABB()
	return &b
}

// Route returns the shortest orthogonal path from start to end. The path
// starts and ends with the given points; interior points are fresh.
func (r *Router) Route(start, end End) ([]domain.PathPoint, error) {
	s, e := start.Point.Vec(), end.Point.Vec()
	sb, eb := start.aabb(), end.aabb()
	if s.Equal(e, axisTol) {
		return []domain.PathPoint{start.Point, end.Point}, nil
	}
	if sb == nil && eb == nil {
		return elbow(start.Point, end.Point), nil
	}
	if sb != nil && eb != nil {
		os, oe := offsets(sb, eb, r.opts.Clearance)
		if expand(eb, oe).ContainsPoint(s, 0) && expand(sb, os).ContainsPoint(e, 0) {
			return elbow(start.Point, end.Point), nil
		}
	}

	sDir, eDir := axisDir(start.Point.Tangent), axisDir(end.Point.Tangent)
	c := buildCorridor(s, sDir, sb, e, eDir, eb, r.opts.Clearance, r.opts.DedupTolerance)

	mid, err := r.search(c, c.expanded)
	if err != nil {
		return nil, err
	}
	if mid == nil {
		// overlapping corridors: fall back to the unexpanded shapes
		if mid, err = r.search(c, c.original); err != nil {
			return nil, err
		}
	}
	if mid == nil {
		r.log.Warn("no orthogonal route, using elbow", "from", s, "to", e)
		mid = []vector.Vec2{c.start, elbowCorner(c.start, c.end, directionOf(sDir)), c.end}
	}

	path := make([]domain.PathPoint, 0, len(mid)+2)
	path = append(path, start.Point)
	for _, p := range mid {
		path = append(path, domain.Pt(p))
	}
	path = append(path, end.Point)
	path = squareUp(path)
	return MergeCollinear(path, false), nil
}

// search runs A* between the corridor pointers with the given obstacles. A
// nil path without error means no route exists.
func (r *Router) search(c corridor, obstacles []vector.Bound) ([]vector.Vec2, error) {
	cands := c.candidates(obstacles)
	if err := validateCandidates(cands); err != nil {
		r.log.Error("invalid candidate set", "err", err)
		return nil, err
	}
	si, ei := -1, -1
	for i, cd := range cands {
		if cd.P == c.start {
			si = i
		}
		if cd.P == c.end {
			ei = i
		}
	}
	if si < 0 || ei < 0 {
		return nil, nil
	}
	g := buildGraph(cands, obstacles)
	ids, ok := g.shortest(si, ei, directionOf(c.startDir), directionOf(c.endDir.Neg()))
	if !ok {
		return nil, nil
	}
	out := make([]vector.Vec2, len(ids))
	for i, id := range ids {
		out[i] = cands[id].P
	}
	return out, nil
}

// elbow joins two points with at most one corner.
func elbow(a, b domain.PathPoint) []domain.PathPoint {
	av, bv := a.Vec(), b.Vec()
	if vector.Near(av.X, bv.X, axisTol) || vector.Near(av.Y, bv.Y, axisTol) {
		return []domain.PathPoint{a, b}
	}
	dir := directionOf(a.Tangent)
	if dir == DirNone {
		// leave b along its own tangent axis
		switch directionOf(b.Tangent) {
		case DirLeft, DirRight:
			dir = DirDown
		case DirUp, DirDown:
			dir = DirRight
		}
	}
	return []domain.PathPoint{a, domain.Pt(elbowCorner(av, bv, dir)), b}
}

func elbowCorner(a, b vector.Vec2, first Direction) vector.Vec2 {
	switch first {
	case DirUp, DirDown:
		return vector.Vec2{X: a.X, Y: b.Y}
	case DirLeft, DirRight:
		return vector.Vec2{X: b.X, Y: a.Y}
	}
	if math.Abs(b.X-a.X) >= math.Abs(b.Y-a.Y) {
		return vector.Vec2{X: b.X, Y: a.Y}
	}
	return vector.Vec2{X: a.X, Y: b.Y}
}

// squareUp removes sub-tolerance offsets between neighbours left over from
// candidate deduplication, keeping both end points exact.
func squareUp(path []domain.PathPoint) []domain.PathPoint {
	n := len(path)
	for i := 1; i < n-1; i++ {
		if vector.Near(path[i].X, path[i-1].X, DefaultDedupTolerance) {
			path[i].X = path[i-1].X
		}
		if vector.Near(path[i].Y, path[i-1].Y, DefaultDedupTolerance) {
			path[i].Y = path[i-1].Y
		}
	}
	if n > 2 {
		last, prev := path[n-1], &path[n-2]
		if vector.Near(prev.X, last.X, DefaultDedupTolerance) {
			prev.X = last.X
		}
		if vector.Near(prev.Y, last.Y, DefaultDedupTolerance) {
			prev.Y = last.Y
		}
	}
	return path
}

// RouteToLine routes from to the axis of seg and returns a path whose last
// point lies exactly on that axis. Without a bound this is the
// perpendicular foot; with one the path first clears the shape.
func (r *Router) RouteToLine(from End, seg vector.Line) ([]domain.PathPoint, error) {
	p := from.Point.Vec()
	seg = nonDegenerate(p, seg)
	horizontal := math.Abs(seg.B.X-seg.A.X) >= math.Abs(seg.B.Y-seg.A.Y)
	axis := seg.A.X
	if horizontal {
		axis = seg.A.Y
	}
	onAxis := func(v vector.Vec2) vector.Vec2 {
		if horizontal {
			return vector.Vec2{X: v.X, Y: axis}
		}
		return vector.Vec2{X: axis, Y: v.Y}
	}

	b := from.aabb()
	if b == nil {
		foot := onAxis(p)
		if foot.Equal(p, axisTol) {
			return []domain.PathPoint{from.Point}, nil
		}
		return []domain.PathPoint{from.Point, domain.Pt(foot)}, nil
	}

	exp := b.ExpandAll(r.opts.Clearance)
	target := onAxis(pointer(p, axisDir(from.Point.Tangent), &exp))
	if exp.StrictlyContains(target, 1e-9) {
		far := seg.A
		if seg.B.Dist(p) > far.Dist(p) {
			far = seg.B
		}
		c := exp.Center()
		if horizontal {
			target.X = exp.X
			if far.X > c.X {
				target.X = exp.X + exp.W
			}
		} else {
			target.Y = exp.Y
			if far.Y > c.Y {
				target.Y = exp.Y + exp.H
			}
		}
	}
	path, err := r.Route(from, End{Point: domain.Pt(target)})
	if err != nil {
		return nil, err
	}
	last := &path[len(path)-1]
	if horizontal {
		last.Y = axis
	} else {
		last.X = axis
	}
	return path, nil
}

// nonDegenerate replaces a zero-length segment with a short line through its
// point, perpendicular to the approach from p.
func nonDegenerate(p vector.Vec2, seg vector.Line) vector.Line {
	if seg.Len() > axisTol {
		return seg
	}
	d := p.Sub(seg.A)
	if math.Abs(d.Y) >= math.Abs(d.X) {
		return vector.Line{A: seg.A, B: seg.A.Add(vector.Vec2{X: DegenerateOffset})}
	}
	return vector.Line{A: seg.A, B: seg.A.Add(vector.Vec2{Y: DegenerateOffset})}
}

// Reroute recomputes a path whose interior carries pinned points. The run
// between the first and last pinned point is kept verbatim; the head and
// tail are routed to the pinned segments. Fewer than two pinned points fall
// back to a full route.
func (r *Router) Reroute(start, end End, old []domain.PathPoint) ([]domain.PathPoint, error) {
	first, last := -1, -1
	for i := 1; i < len(old)-1; i++ {
		if old[i].Pinned.X || old[i].Pinned.Y {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || first == last {
		return r.Route(start, end)
	}

	head, err := r.RouteToLine(start, vector.Line{A: old[first].Vec(), B: old[first+1].Vec()})
	if err != nil {
		return nil, err
	}
	tail, err := r.RouteToLine(end, vector.Line{A: old[last].Vec(), B: old[last-1].Vec()})
	if err != nil {
		return nil, err
	}
	head[len(head)-1].Pinned = old[first].Pinned
	tail[len(tail)-1].Pinned = old[last].Pinned

	path := make([]domain.PathPoint, 0, len(head)+len(tail)+last-first)
	path = append(path, head...)
	path = append(path, old[first+1:last]...)
	for i := len(tail) - 1; i >= 0; i-- {
		path = append(path, tail[i])
	}
	if len(head) == 1 {
		// the start already lies on the pinned axis
		path[0] = start.Point
	}
	path[len(path)-1] = end.Point
	path = MergeCollinear(path, true)
	if !IsOrthogonal(path) {
		r.log.Debug("partial reroute not orthogonal, routing fully")
		return r.Route(start, end)
	}
	return path, nil
}

// IsOrthogonal reports whether every segment is axis-aligned.
func IsOrthogonal(path []domain.PathPoint) bool {
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		if !vector.Near(a.X, b.X, axisTol) && !vector.Near(a.Y, b.Y, axisTol) {
			return false
		}
	}
	return true
}

// MergeCollinear drops consecutive duplicates and interior points lying on a
// straight run. With keepPinned, pinned points always stay; otherwise the
// run's axis pin of a removed point is folded into its interior neighbours.
// The end points are never removed. The result is a fresh slice and the
// operation is idempotent.
func MergeCollinear(path []domain.PathPoint, keepPinned bool) []domain.PathPoint {
	n := len(path)
	if n <= 2 {
		return append([]domain.PathPoint(nil), path...)
	}
	pinned := func(p domain.PathPoint) bool { return keepPinned && (p.Pinned.X || p.Pinned.Y) }
	out := make([]domain.PathPoint, 0, n)
	out = append(out, path[0])
	for i := 1; i < n; i++ {
		q := path[i]
		final := i == n-1
		skip := false
		for {
			top := out[len(out)-1]
			interior := len(out) > 1
			if top.Vec().Equal(q.Vec(), axisTol) {
				if !final {
					if interior {
						out[len(out)-1].Pinned = orPins(top.Pinned, q.Pinned)
					}
					skip = true
				} else if interior && !pinned(top) {
					out = out[:len(out)-1]
					continue
				}
				break
			}
			if !interior || pinned(top) || !collinear(out[len(out)-2], top, q) {
				break
			}
			run := runPins(out[len(out)-2], top, q)
			out = out[:len(out)-1]
			if len(out) > 1 {
				out[len(out)-1].Pinned = orPins(out[len(out)-1].Pinned, run)
			}
			if !final {
				q.Pinned = orPins(q.Pinned, run)
			}
		}
		if !skip {
			out = append(out, q)
		}
	}
	return out
}

// runPins keeps the pin of b along the axis shared by the run a-b-c.
func runPins(a, b, c domain.PathPoint) domain.PinnedAxis {
	sameX := vector.Near(a.X, b.X, axisTol) && vector.Near(b.X, c.X, axisTol)
	sameY := vector.Near(a.Y, b.Y, axisTol) && vector.Near(b.Y, c.Y, axisTol)
	return domain.PinnedAxis{X: sameX && b.Pinned.X, Y: sameY && b.Pinned.Y}
}

func orPins(a, b domain.PinnedAxis) domain.PinnedAxis {
	return domain.PinnedAxis{X: a.X || b.X, Y: a.Y || b.Y}
}

// collinear reports whether b lies on the axis-aligned run from a to c. A
// backtrack past b is a direction change, not a run.
func collinear(a, b, c domain.PathPoint) bool {
	sameX := vector.Near(a.X, b.X, axisTol) && vector.Near(b.X, c.X, axisTol)
	sameY := vector.Near(a.Y, b.Y, axisTol) && vector.Near(b.Y, c.Y, axisTol)
	if sameX && (b.Y-a.Y)*(c.Y-b.Y) >= 0 {
		return true
	}
	return sameY && (b.X-a.X)*(c.X-b.X) >= 0
}
