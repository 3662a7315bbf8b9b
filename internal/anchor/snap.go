/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anchor

// Interactive snapping of a dragged connector end. Deterministic and
// UI-agnostic so it can be unit tested without a canvas.

import (
	"math"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

// SnapOptions controls the snap threshold.
type SnapOptions struct {
	// Threshold is the snap distance in screen pixels. Defaults to 8.
	Threshold float64
	// Zoom converts screen pixels into model units. Defaults to 1.
	Zoom float64
	// Offset is the cardinal anchor offset. Defaults to DefaultOffset.
	Offset float64
}

// SnapKind tells which rule produced a snap result.
type SnapKind int

const (
	SnapFree SnapKind = iota
	SnapAnchor
	SnapBoundary
	SnapInside
)

func (k SnapKind) String() string {
	return [...]string{"free", "anchor", "boundary", "inside"}[k]
}

// SnapSource provides the shapes a cursor may snap to.
type SnapSource interface {
	// ShapesIn returns shapes intersecting the viewport, topmost first.
	ShapesIn(viewport vector.Bound) []domain.Shape
	// GroupBound returns the bound of the group containing the shape, if any.
	GroupBound(shapeID string) (vector.Bound, bool)
}

// SnapResult is the connection a dragged end should take.
type SnapResult struct {
	Kind       SnapKind
	Connection domain.Connection
	// Point is the resolved preview position.
	Point domain.PathPoint
	// GroupBound is set when the matched shape belongs to a group; it is
	// only used for a highlight box.
	GroupBound *vector.Bound
}

// Snap resolves cursor against the shapes in viewport. Rules apply in
// priority order across all candidate shapes: an anchor within the
// threshold, then the nearest outline point within the threshold, then the
// topmost shape containing the cursor, else a free point.
func Snap(src SnapSource, cursor vector.Vec2, viewport vector.Bound, excluded []string, opts SnapOptions) SnapResult {
	if opts.Threshold <= 0 {
		opts.Threshold = 8
	}
	if opts.Zoom <= 0 {
		opts.Zoom = 1
	}
	threshold := opts.Threshold / opts.Zoom

	skip := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}
	var shapes []domain.Shape
	for _, s := range src.ShapesIn(viewport) {
		if s.Connectable() && !skip[s.ID()] {
			shapes = append(shapes, s)
		}
	}

	withGroup := func(r SnapResult, id string) SnapResult {
		if gb, ok := src.GroupBound(id); ok {
			r.GroupBound = &gb
		}
		return r
	}

	// (a) anchors
	bestD := math.Inf(1)
	var bestAnchor Anchor
	var bestShape domain.Shape
	for _, s := range shapes {
		for _, a := range CardinalAnchors(s, opts.Offset) {
			if d := a.Point.Vec().Dist(cursor); d <= threshold && d < bestD {
				bestD, bestAnchor, bestShape = d, a, s
			}
		}
	}
	if bestShape != nil {
		rel := bestAnchor.Relative
		return withGroup(SnapResult{
			Kind:       SnapAnchor,
			Connection: domain.Attached(bestShape.ID(), &rel),
			Point:      bestAnchor.Point,
		}, bestShape.ID())
	}

	// (b) outline
	bestD = math.Inf(1)
	var bestRel vector.Vec2
	for _, s := range shapes {
		p := s.NearestPoint(cursor)
		if d := p.Dist(cursor); d <= threshold && d < bestD {
			bestD, bestShape = d, s
			bestRel = clampUnit(s.Bound().RelativeOf(p))
		}
	}
	if bestShape != nil {
		return withGroup(SnapResult{
			Kind:       SnapBoundary,
			Connection: domain.Attached(bestShape.ID(), &bestRel),
			Point:      bestShape.RelativePointLocation(bestRel),
		}, bestShape.ID())
	}

	// (c) inside the body
	for _, s := range shapes {
		if s.PointInside(cursor, 0) {
			return withGroup(SnapResult{
				Kind:       SnapInside,
				Connection: domain.Attached(s.ID(), nil),
				Point:      domain.Pt(s.Bound().Center()),
			}, s.ID())
		}
	}

	// (d) free
	return SnapResult{Kind: SnapFree, Connection: domain.Free(cursor), Point: domain.Pt(cursor)}
}

func clampUnit(v vector.Vec2) vector.Vec2 {
	return vector.Vec2{X: math.Max(0, math.Min(1, v.X)), Y: math.Max(0, math.Min(1, v.Y))}
}
