/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package anchor resolves connector endpoints against shapes and snaps
// interactive pointer positions to shape anchors and outlines.
package anchor

import (
	"errors"
	"fmt"
	"math"

	"goconnector/internal/domain"
	applog "goconnector/internal/log"
	"goconnector/internal/vector"
)

// ErrUnresolvable reports a connection whose shape cannot be looked up.
var ErrUnresolvable = errors.New("endpoint cannot be resolved")

// DefaultOffset is how far cardinal anchors are projected outward before
// being intersected back onto the outline.
const DefaultOffset = 10

// Side names a cardinal anchor in enumeration order.
type Side int

const (
	Top Side = iota
	Right
	Bottom
	Left
)

func (s Side) String() string {
	return [...]string{"top", "right", "bottom", "left"}[s]
}

// Anchor is a point on a shape outline where a connector may terminate.
type Anchor struct {
	Side     Side
	Point    domain.PathPoint
	Relative vector.Vec2
}

var sideRelative = [4]vector.Vec2{{X: 0.5, Y: 0}, {X: 1, Y: 0.5}, {X: 0.5, Y: 1}, {X: 0, Y: 0.5}}

// CardinalAnchors returns the top, right, bottom and left anchors of s. Each
// edge midpoint is pushed outward by offset and intersected back onto the
// outline, so non-rectangular outlines get an anchor on their real edge.
func CardinalAnchors(s domain.Shape, offset float64) [4]Anchor {
	if offset <= 0 {
		offset = DefaultOffset
	}
	b := s.Bound()
	center := b.Center()
	var out [4]Anchor
	for i, rel := range sideRelative {
		base := s.RelativePointLocation(rel)
		p := base.Vec()
		if !base.Tangent.IsZero() {
			outside := p.Add(base.Tangent.Normalize().Scale(offset))
			// keep the exact midpoint when the outline passes through it
			if hits := s.LineIntersections(outside, center); len(hits) > 0 && !hits[0].Equal(p, vector.Epsilon) {
				p = hits[0]
			}
		}
		out[i] = Anchor{
			Side:     Side(i),
			Point:    base.Moved(p),
			Relative: b.RelativeOf(p),
		}
	}
	return out
}

// NearestAnchor returns the cardinal anchor of s closest to target. Ties
// resolve in enumeration order.
func NearestAnchor(s domain.Shape, target vector.Vec2, offset float64) Anchor {
	anchors := CardinalAnchors(s, offset)
	best := anchors[0]
	bestD := best.Point.Vec().Dist(target)
	for _, a := range anchors[1:] {
		if d := a.Point.Vec().Dist(target); d < bestD {
			best, bestD = a, d
		}
	}
	return best
}

// Resolver maps connections to path points through a shape lookup.
type Resolver struct {
	Shapes domain.ShapeLookup
	Offset float64
}

// NewResolver returns a resolver with the default anchor offset.
func NewResolver(shapes domain.ShapeLookup) *Resolver {
	return &Resolver{Shapes: shapes, Offset: DefaultOffset}
}

func (r *Resolver) shape(c domain.Connection) (domain.Shape, error) {
	s, ok := r.Shapes.ShapeByID(c.ShapeID)
	if !ok || s == nil {
		applog.WithOperation(applog.WithComponent("anchor"), "resolve").Debug("shape missing", "shape", c.ShapeID)
		return nil, fmt.Errorf("shape %s: %w", c.ShapeID, ErrUnresolvable)
	}
	return s, nil
}

// Valid reports whether the connection can currently be resolved.
func (r *Resolver) Valid(c domain.Connection) bool {
	if !c.IsAttached() {
		return true
	}
	s, ok := r.Shapes.ShapeByID(c.ShapeID)
	return ok && s != nil
}

// ResolveEndpoint resolves one end. Auto connections pick the cardinal
// anchor nearest to opposite.
func (r *Resolver) ResolveEndpoint(c domain.Connection, opposite vector.Vec2) (domain.PathPoint, error) {
	if !c.IsAttached() {
		if c.Absolute == nil {
			return domain.PathPoint{}, nil
		}
		return domain.Pt(*c.Absolute), nil
	}
	s, err := r.shape(c)
	if err != nil {
		return domain.PathPoint{}, err
	}
	if c.Position != nil {
		return s.RelativePointLocation(*c.Position), nil
	}
	return NearestAnchor(s, opposite, r.Offset).Point, nil
}

// ResolveEnds resolves both ends of a connector. When both are auto, the
// pair of anchors with the smallest distance is chosen; otherwise the
// explicit end is resolved first and the auto end picks its nearest anchor.
func (r *Resolver) ResolveEnds(src, dst domain.Connection) (domain.PathPoint, domain.PathPoint, error) {
	if src.IsAuto() && dst.IsAuto() {
		a, err := r.shape(src)
		if err != nil {
			return domain.PathPoint{}, domain.PathPoint{}, err
		}
		b, err := r.shape(dst)
		if err != nil {
			return domain.PathPoint{}, domain.PathPoint{}, err
		}
		as, bs := CardinalAnchors(a, r.Offset), CardinalAnchors(b, r.Offset)
		best := math.Inf(1)
		var start, end domain.PathPoint
		for _, x := range as {
			for _, y := range bs {
				if d := x.Point.Vec().Dist(y.Point.Vec()); d < best {
					best, start, end = d, x.Point, y.Point
				}
			}
		}
		return start, end, nil
	}
	if src.IsAuto() {
		end, err := r.ResolveEndpoint(dst, vector.Vec2{})
		if err != nil {
			return domain.PathPoint{}, domain.PathPoint{}, err
		}
		start, err := r.ResolveEndpoint(src, end.Vec())
		return start, end, err
	}
	start, err := r.ResolveEndpoint(src, vector.Vec2{})
	if err != nil {
		return domain.PathPoint{}, domain.PathPoint{}, err
	}
	end, err := r.ResolveEndpoint(dst, start.Vec())
	return start, end, err
}
