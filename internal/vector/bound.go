/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Bound is an axis-aligned rectangle with an optional rotation in degrees
// about its own center. X/Y/W/H describe the unrotated rectangle.
type Bound struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Rotate float64 `json:"rotate,omitempty"`
}

func B(x, y, w, h float64) Bound { return Bound{X: x, Y: y, W: w, H: h} }

func (b Bound) Min() Vec2    { return Vec2{b.X, b.Y} }
func (b Bound) Max() Vec2    { return Vec2{b.X + b.W, b.Y + b.H} }
func (b Bound) Center() Vec2 { return Vec2{b.X + b.W/2, b.Y + b.H/2} }
func (b Bound) IsRotated() bool {
	return math.Mod(b.Rotate, 360) != 0
}

// Transform maps the local (unrotated) frame into world coordinates.
func (b Bound) Transform() Affine2D {
	if !b.IsRotated() {
		return Identity
	}
	return RotateAbout(b.Center(), b.Rotate)
}

// ToLocal maps a world point into the bound's unrotated frame.
func (b Bound) ToLocal(p Vec2) Vec2 {
	if !b.IsRotated() {
		return p
	}
	return b.Transform().Invert().Apply(p)
}

// FromLocal maps a point in the unrotated frame into world coordinates.
func (b Bound) FromLocal(p Vec2) Vec2 {
	if !b.IsRotated() {
		return p
	}
	return b.Transform().Apply(p)
}

// Points returns the world-space vertices: top-left, top-right,
// bottom-right, bottom-left.
func (b Bound) Points() [4]Vec2 {
	return [4]Vec2{
		b.FromLocal(Vec2{b.X, b.Y}),
		b.FromLocal(Vec2{b.X + b.W, b.Y}),
		b.FromLocal(Vec2{b.X + b.W, b.Y + b.H}),
		b.FromLocal(Vec2{b.X, b.Y + b.H}),
	}
}

// Midpoints returns the world-space edge midpoints: top, right, bottom, left.
func (b Bound) Midpoints() [4]Vec2 {
	return [4]Vec2{
		b.FromLocal(Vec2{b.X + b.W/2, b.Y}),
		b.FromLocal(Vec2{b.X + b.W, b.Y + b.H/2}),
		b.FromLocal(Vec2{b.X + b.W/2, b.Y + b.H}),
		b.FromLocal(Vec2{b.X, b.Y + b.H/2}),
	}
}

// Lines returns the four world-space edges: top, right, bottom, left.
func (b Bound) Lines() [4]Line {
	p := b.Points()
	return [4]Line{{p[0], p[1]}, {p[1], p[2]}, {p[2], p[3]}, {p[3], p[0]}}
}

// Expand grows the bound by the given side amounts. Negative amounts shrink
// it; width and height are clamped at zero around the collapsed center.
func (b Bound) Expand(l, t, r, btm float64) Bound {
	out := Bound{X: b.X - l, Y: b.Y - t, W: b.W + l + r, H: b.H + t + btm, Rotate: b.Rotate}
	if out.W < 0 {
		out.X += out.W / 2
		out.W = 0
	}
	if out.H < 0 {
		out.Y += out.H / 2
		out.H = 0
	}
	return out
}

// ExpandAll grows every side by d.
func (b Bound) ExpandAll(d float64) Bound { return b.Expand(d, d, d, d) }

// AABB returns the axis-aligned box enclosing the rotated bound.
func (b Bound) AABB() Bound {
	if !b.IsRotated() {
		return Bound{X: b.X, Y: b.Y, W: b.W, H: b.H}
	}
	pts := b.Points()
	return BoundFromPoints(pts[:])
}

// Union returns the minimal axis-aligned bound containing both.
func (b Bound) Union(o Bound) Bound {
	a, c := b.AABB(), o.AABB()
	minX := math.Min(a.X, c.X)
	minY := math.Min(a.Y, c.Y)
	maxX := math.Max(a.X+a.W, c.X+c.W)
	maxY := math.Max(a.Y+a.H, c.Y+c.H)
	return Bound{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// ContainsPoint reports whether p lies inside or on the bound, with tolerance.
func (b Bound) ContainsPoint(p Vec2, tol float64) bool {
	q := b.ToLocal(p)
	return q.X >= b.X-tol && q.Y >= b.Y-tol && q.X <= b.X+b.W+tol && q.Y <= b.Y+b.H+tol
}

// StrictlyContains reports whether p lies in the open interior, at least tol
// away from every edge.
func (b Bound) StrictlyContains(p Vec2, tol float64) bool {
	q := b.ToLocal(p)
	return q.X > b.X+tol && q.Y > b.Y+tol && q.X < b.X+b.W-tol && q.Y < b.Y+b.H-tol
}

// Intersects reports whether the axis-aligned boxes of b and o overlap.
func (b Bound) Intersects(o Bound) bool {
	a, c := b.AABB(), o.AABB()
	return a.X <= c.X+c.W && c.X <= a.X+a.W && a.Y <= c.Y+c.H && c.Y <= a.Y+a.H
}

// PointAt maps a relative position in [0,1]x[0,1] to a world point.
func (b Bound) PointAt(rel Vec2) Vec2 {
	return b.FromLocal(Vec2{b.X + rel.X*b.W, b.Y + rel.Y*b.H})
}

// RelativeOf maps a world point to its relative position within the bound.
// Degenerate axes map to 0.5.
func (b Bound) RelativeOf(p Vec2) Vec2 {
	q := b.ToLocal(p)
	rel := Vec2{0.5, 0.5}
	if b.W != 0 {
		rel.X = (q.X - b.X) / b.W
	}
	if b.H != 0 {
		rel.Y = (q.Y - b.Y) / b.H
	}
	return rel
}

// EdgeNormal returns the outward unit normal of the edge nearest to the
// relative position, rotated into world space. Ties resolve top, right,
// bottom, left.
func (b Bound) EdgeNormal(rel Vec2) Vec2 {
	dists := [4]float64{rel.Y, 1 - rel.X, 1 - rel.Y, rel.X}
	normals := [4]Vec2{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	best := 0
	for i := 1; i < 4; i++ {
		if dists[i] < dists[best] {
			best = i
		}
	}
	return normals[best].Rotate(b.Rotate)
}

// NearestPoint returns the point on the bound outline closest to p.
func (b Bound) NearestPoint(p Vec2) Vec2 {
	best := Vec2{}
	bestD := math.Inf(1)
	for _, l := range b.Lines() {
		q := l.ClosestPoint(p)
		if d := q.Dist(p); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

// BoundFromPoints returns the tight axis-aligned bound of pts.
func BoundFromPoints(pts []Vec2) Bound {
	if len(pts) == 0 {
		return Bound{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Bound{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
