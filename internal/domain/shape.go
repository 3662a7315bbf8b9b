/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"goconnector/internal/vector"
)

// Shape is the capability surface routing needs from a connectable element.
type Shape interface {
	ID() string
	Bound() vector.Bound
	Connectable() bool
	NearestPoint(p vector.Vec2) vector.Vec2
	PointInside(p vector.Vec2, tol float64) bool
	RelativePointLocation(rel vector.Vec2) PathPoint
	LineIntersections(from, to vector.Vec2) []vector.Vec2
}

// ShapeLookup resolves shape ids at routing time. Connectors never hold
// shape pointers; every routing call goes through a lookup.
type ShapeLookup interface {
	ShapeByID(id string) (Shape, bool)
}

// RectShape is a rectangular, optionally rotated shape.
type RectShape struct {
	ShapeID  string       `json:"id"`
	Box      vector.Bound `json:"xywh"`
	Text     string       `json:"text,omitempty"`
	Fill     string       `json:"fill,omitempty"`
	Stroke   string       `json:"stroke,omitempty"`
	Disabled bool         `json:"notConnectable,omitempty"`
}

func (s *RectShape) ID() string          { return s.ShapeID }
func (s *RectShape) Bound() vector.Bound { return s.Box }
func (s *RectShape) Connectable() bool   { return !s.Disabled }

func (s *RectShape) NearestPoint(p vector.Vec2) vector.Vec2 { return s.Box.NearestPoint(p) }

func (s *RectShape) PointInside(p vector.Vec2, tol float64) bool {
	return s.Box.ContainsPoint(p, tol)
}

// RelativePointLocation maps rel through the (rotated) bound and attaches
// the outward normal of the nearest edge as tangent.
func (s *RectShape) RelativePointLocation(rel vector.Vec2) PathPoint {
	pt := Pt(s.Box.PointAt(rel))
	pt.Tangent = s.Box.EdgeNormal(rel)
	return pt
}

// LineIntersections returns the crossings of segment from-to with the
// outline, ordered by distance from from.
func (s *RectShape) LineIntersections(from, to vector.Vec2) []vector.Vec2 {
	seg := vector.Line{A: from, B: to}
	var out []vector.Vec2
	for _, edge := range s.Box.Lines() {
		p, ok := vector.IntersectSegments(seg, edge)
		if !ok {
			continue
		}
		dup := false
		for _, q := range out {
			if q.Equal(p, vector.Epsilon) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Dist(from) < out[j-1].Dist(from); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Group collects shapes for selection highlighting.
type Group struct {
	ID       string   `json:"id"`
	Children []string `json:"children"`
}
