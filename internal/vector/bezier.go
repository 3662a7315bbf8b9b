/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Cubic is a cubic Bézier segment with absolute control points.
type Cubic struct{ P0, P1, P2, P3 Vec2 }

// At evaluates the curve at t using De Casteljau's algorithm.
func (c Cubic) At(t float64) Vec2 {
	a, _ := c.Split(t)
	return a.P3
}

// Split divides the curve at t into two cubics.
func (c Cubic) Split(t float64) (Cubic, Cubic) {
	p01 := c.P0.Lerp(c.P1, t)
	p12 := c.P1.Lerp(c.P2, t)
	p23 := c.P2.Lerp(c.P3, t)
	p012 := p01.Lerp(p12, t)
	p123 := p12.Lerp(p23, t)
	m := p012.Lerp(p123, t)
	return Cubic{c.P0, p01, p012, m}, Cubic{m, p123, p23, c.P3}
}

// Length approximates the arc length by sampling n chords.
func (c Cubic) Length(n int) float64 {
	if n < 1 {
		n = 16
	}
	total := 0.0
	prev := c.P0
	for i := 1; i <= n; i++ {
		p := c.At(float64(i) / float64(n))
		total += prev.Dist(p)
		prev = p
	}
	return total
}

// Bounds returns the exact axis-aligned bound of the curve, using the roots
// of the derivative on each axis rather than the control hull.
func (c Cubic) Bounds() Bound {
	pts := []Vec2{c.P0, c.P3}
	for _, t := range extremaT(c.P0.X, c.P1.X, c.P2.X, c.P3.X) {
		pts = append(pts, c.At(t))
	}
	for _, t := range extremaT(c.P0.Y, c.P1.Y, c.P2.Y, c.P3.Y) {
		pts = append(pts, c.At(t))
	}
	return BoundFromPoints(pts)
}

// extremaT returns parameters in (0,1) where the 1D cubic has zero slope.
func extremaT(p0, p1, p2, p3 float64) []float64 {
	a := 3 * (-p0 + 3*p1 - 3*p2 + p3)
	b := 6 * (p0 - 2*p1 + p2)
	c := 3 * (p1 - p0)
	var ts []float64
	add := func(t float64) {
		if t > 0 && t < 1 {
			ts = append(ts, t)
		}
	}
	if math.Abs(a) < 1e-12 {
		if math.Abs(b) > 1e-12 {
			add(-c / b)
		}
		return ts
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return ts
	}
	sq := math.Sqrt(disc)
	add((-b + sq) / (2 * a))
	add((-b - sq) / (2 * a))
	return ts
}
