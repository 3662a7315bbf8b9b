/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Line is a segment from A to B. Some helpers treat it as infinite.
type Line struct{ A, B Vec2 }

func (l Line) Vector() Vec2 { return l.B.Sub(l.A) }
func (l Line) Len() float64 { return l.A.Dist(l.B) }
func (l Line) Mid() Vec2    { return l.A.Lerp(l.B, 0.5) }

// IsHorizontal reports whether both ends share a y value within tol.
func (l Line) IsHorizontal(tol float64) bool { return Near(l.A.Y, l.B.Y, tol) }

// IsVertical reports whether both ends share an x value within tol.
func (l Line) IsVertical(tol float64) bool { return Near(l.A.X, l.B.X, tol) }

// Foot returns the perpendicular foot of p on the infinite line through l.
// A degenerate line returns its start.
func (l Line) Foot(p Vec2) Vec2 {
	d := l.Vector()
	dd := d.Dot(d)
	if dd == 0 {
		return l.A
	}
	t := p.Sub(l.A).Dot(d) / dd
	return l.A.Add(d.Scale(t))
}

// ClosestPoint returns the point on the segment nearest to p.
func (l Line) ClosestPoint(p Vec2) Vec2 {
	d := l.Vector()
	dd := d.Dot(d)
	if dd == 0 {
		return l.A
	}
	t := math.Max(0, math.Min(1, p.Sub(l.A).Dot(d)/dd))
	return l.A.Add(d.Scale(t))
}

// intersect solves l.A + t*(l.B-l.A) = o.A + u*(o.B-o.A).
func (l Line) intersect(o Line) (t, u float64, ok bool) {
	r := l.Vector()
	s := o.Vector()
	den := r.Cross(s)
	if math.Abs(den) < 1e-12 {
		return 0, 0, false
	}
	q := o.A.Sub(l.A)
	return q.Cross(s) / den, q.Cross(r) / den, true
}

// IntersectSegments returns the crossing point of two segments, endpoints
// included. Parallel segments never intersect.
func IntersectSegments(a, b Line) (Vec2, bool) {
	t, u, ok := a.intersect(b)
	const e = 1e-9
	if !ok || t < -e || t > 1+e || u < -e || u > 1+e {
		return Vec2{}, false
	}
	return a.A.Add(a.Vector().Scale(t)), true
}

// IntersectLines returns the crossing point of the two infinite lines.
func IntersectLines(a, b Line) (Vec2, bool) {
	t, _, ok := a.intersect(b)
	if !ok {
		return Vec2{}, false
	}
	return a.A.Add(a.Vector().Scale(t)), true
}

// IntersectRay returns the first crossing of the ray from origin along dir
// with the segment, and the ray parameter.
func IntersectRay(origin, dir Vec2, seg Line) (Vec2, float64, bool) {
	ray := Line{A: origin, B: origin.Add(dir)}
	t, u, ok := ray.intersect(seg)
	const e = 1e-9
	if !ok || t < -e || u < -e || u > 1+e {
		return Vec2{}, 0, false
	}
	return origin.Add(dir.Scale(t)), t, true
}
