/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ortho

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"goconnector/internal/vector"
)

// ErrCandidateCollision reports two distinct candidates sharing coordinates
// after deduplication. It indicates a defect in candidate generation.
var ErrCandidateCollision = errors.New("orthogonal candidate collision")

// Priority weights of candidate lines. Higher is preferred as a tie-break.
const (
	weightPlain   = 1
	weightPointer = 2
	weightGapMid  = 3
	bonusPointer  = 4
)

type axisLine struct {
	v       float64
	w       int
	pointer bool
}

type candidate struct {
	P       vector.Vec2
	Weight  int
	Pointer bool
}

// offsets returns the per-side clearance of a and b (left, top, right,
// bottom). Facing sides closer than twice the clearance share the gap evenly
// so the expanded bounds never overlap.
func offsets(a, b *vector.Bound, clearance float64) (oa, ob [4]float64) {
	for i := range oa {
		oa[i], ob[i] = clearance, clearance
	}
	if a == nil || b == nil {
		return oa, ob
	}
	shrink := func(gap float64, sa, sb *float64) {
		if gap >= 0 && gap < 2*clearance {
			*sa, *sb = gap/2, gap/2
		}
	}
	shrink(b.X-(a.X+a.W), &oa[2], &ob[0]) // a left of b
	shrink(a.X-(b.X+b.W), &oa[0], &ob[2]) // a right of b
	shrink(b.Y-(a.Y+a.H), &oa[3], &ob[1]) // a above b
	shrink(a.Y-(b.Y+b.H), &oa[1], &ob[3]) // a below b
	return oa, ob
}

func expand(b *vector.Bound, o [4]float64) *vector.Bound {
	if b == nil {
		return nil
	}
	e := b.Expand(o[0], o[1], o[2], o[3])
	return &e
}

// pointer returns where the ray from p along dir leaves the expanded bound.
// Without a bound or direction, p itself is the pointer.
func pointer(p, dir vector.Vec2, exp *vector.Bound) vector.Vec2 {
	if exp == nil || dir.IsZero() {
		return p
	}
	switch {
	case dir.X > 0:
		return vector.Vec2{X: math.Max(p.X, exp.X+exp.W), Y: p.Y}
	case dir.X < 0:
		return vector.Vec2{X: math.Min(p.X, exp.X), Y: p.Y}
	case dir.Y > 0:
		return vector.Vec2{X: p.X, Y: math.Max(p.Y, exp.Y+exp.H)}
	default:
		return vector.Vec2{X: p.X, Y: math.Min(p.Y, exp.Y)}
	}
}

// dedupLines sorts lines and merges values within tol. The representative of
// a cluster is a pointer line when one exists, otherwise the heaviest line;
// the cluster keeps the maximum weight.
func dedupLines(ls []axisLine, tol float64) []axisLine {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].v < ls[j].v })
	var out []axisLine
	for i := 0; i < len(ls); {
		j := i
		for j+1 < len(ls) && ls[j+1].v-ls[i].v <= tol {
			j++
		}
		rep := ls[i]
		maxW := 0
		for k := i; k <= j; k++ {
			l := ls[k]
			maxW = max(maxW, l.w)
			switch {
			case l.pointer && !rep.pointer:
				rep = l
			case l.pointer == rep.pointer && l.w > rep.w:
				rep = l
			}
		}
		rep.w = maxW
		out = append(out, rep)
		i = j + 1
	}
	return out
}

// snapValue maps v to the deduplicated line it was merged into.
func snapValue(ls []axisLine, v, tol float64) (float64, int) {
	best, bestW, bestD := v, 0, math.Inf(1)
	for _, l := range ls {
		if d := math.Abs(l.v - v); d <= tol && d < bestD {
			best, bestW, bestD = l.v, l.w, d
		}
	}
	return best, bestW
}

type corridor struct {
	start, end       vector.Vec2 // pointers after snapping
	startDir, endDir vector.Vec2
	xs, ys           []axisLine
	expanded         []vector.Bound
	original         []vector.Bound
}

// buildCorridor derives the expanded bounds, pointers and candidate lines
// for a route between s and e.
func buildCorridor(s, sDir vector.Vec2, sb *vector.Bound, e, eDir vector.Vec2, eb *vector.Bound, clearance, tol float64) corridor {
	os, oe := offsets(sb, eb, clearance)
	se, ee := expand(sb, os), expand(eb, oe)
	sp := pointer(s, sDir, se)
	ep := pointer(e, eDir, ee)

	var xs, ys []axisLine
	addBound := func(b *vector.Bound, w int) {
		if b == nil {
			return
		}
		xs = append(xs, axisLine{v: b.X, w: w}, axisLine{v: b.X + b.W, w: w})
		ys = append(ys, axisLine{v: b.Y, w: w}, axisLine{v: b.Y + b.H, w: w})
	}
	addBound(se, weightPlain)
	addBound(ee, weightPlain)
	xs = append(xs, axisLine{v: sp.X, w: weightPointer, pointer: true}, axisLine{v: ep.X, w: weightPointer, pointer: true})
	ys = append(ys, axisLine{v: sp.Y, w: weightPointer, pointer: true}, axisLine{v: ep.Y, w: weightPointer, pointer: true})

	c := corridor{startDir: sDir, endDir: eDir}
	if sb != nil && eb != nil {
		// midlines of the gaps between facing edges
		if gap := eb.X - (sb.X + sb.W); gap > 0 {
			xs = append(xs, axisLine{v: sb.X + sb.W + gap/2, w: weightGapMid})
		}
		if gap := sb.X - (eb.X + eb.W); gap > 0 {
			xs = append(xs, axisLine{v: eb.X + eb.W + gap/2, w: weightGapMid})
		}
		if gap := eb.Y - (sb.Y + sb.H); gap > 0 {
			ys = append(ys, axisLine{v: sb.Y + sb.H + gap/2, w: weightGapMid})
		}
		if gap := sb.Y - (eb.Y + eb.H); gap > 0 {
			ys = append(ys, axisLine{v: eb.Y + eb.H + gap/2, w: weightGapMid})
		}
		addBound(ptrBound(se.Union(*ee)), weightPlain)
		c.original = []vector.Bound{*sb, *eb}
	} else {
		// a single bound: the union with the free end bounds the detour
		u := vector.BoundFromPoints([]vector.Vec2{sp, ep})
		for _, b := range []*vector.Bound{se, ee} {
			if b != nil {
				u = u.Union(*b)
			}
		}
		addBound(&u, weightPlain)
		for _, b := range []*vector.Bound{sb, eb} {
			if b != nil {
				c.original = append(c.original, *b)
			}
		}
	}
	for _, b := range []*vector.Bound{se, ee} {
		if b != nil {
			c.expanded = append(c.expanded, *b)
		}
	}

	c.xs = dedupLines(xs, tol)
	c.ys = dedupLines(ys, tol)
	spx, _ := snapValue(c.xs, sp.X, tol)
	spy, _ := snapValue(c.ys, sp.Y, tol)
	epx, _ := snapValue(c.xs, ep.X, tol)
	epy, _ := snapValue(c.ys, ep.Y, tol)
	c.start = vector.Vec2{X: spx, Y: spy}
	c.end = vector.Vec2{X: epx, Y: epy}
	return c
}

func ptrBound(b vector.Bound) *vector.Bound { return &b }

// candidates crosses the x and y lines and drops points strictly inside any
// obstacle. Pointers are always kept.
func (c corridor) candidates(obstacles []vector.Bound) []candidate {
	var out []candidate
	for _, x := range c.xs {
		for _, y := range c.ys {
			p := vector.Vec2{X: x.v, Y: y.v}
			isPtr := p == c.start || p == c.end
			if !isPtr && insideAny(p, obstacles) {
				continue
			}
			w := x.w + y.w
			if isPtr {
				w += bonusPointer
			}
			out = append(out, candidate{P: p, Weight: w, Pointer: isPtr})
		}
	}
	return out
}

func insideAny(p vector.Vec2, bs []vector.Bound) bool {
	for _, b := range bs {
		if b.StrictlyContains(p, 1e-9) {
			return true
		}
	}
	return false
}

// validateCandidates fails when two candidates share coordinates.
func validateCandidates(cs []candidate) error {
	seen := make(map[vector.Vec2]int, len(cs))
	for i, c := range cs {
		if j, ok := seen[c.P]; ok {
			return fmt.Errorf("candidates %d and %d at (%g,%g): %w", j, i, c.P.X, c.P.Y, ErrCandidateCollision)
		}
		seen[c.P] = i
	}
	return nil
}
