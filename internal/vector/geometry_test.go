/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestVec2Basics(t *testing.T) {
	a := V(3, 4)
	if a.Len() != 5 {
		t.Fatalf("len: %v", a.Len())
	}
	n := a.Normalize()
	if !n.Equal(V(0.6, 0.8), 1e-12) {
		t.Fatalf("normalize: %+v", n)
	}
	if !(Vec2{}).Normalize().IsZero() {
		t.Fatalf("zero vector should normalize to zero")
	}
	r := V(1, 0).Rotate(90)
	if !r.Equal(V(0, 1), 1e-12) {
		t.Fatalf("rotate 90: %+v", r)
	}
	p := V(2, 3).Project(V(1, 0))
	if p != V(2, 0) {
		t.Fatalf("project: %+v", p)
	}
	if d := V(0, 0).Manhattan(V(3, -4)); d != 7 {
		t.Fatalf("manhattan: %v", d)
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(V(1, 1))
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	back := m.Invert().Apply(p)
	if !back.Equal(V(1, 1), 1e-12) {
		t.Fatalf("inverse mismatch: %+v", back)
	}
}

func TestBoundExpandNeverNegative(t *testing.T) {
	b := B(0, 0, 10, 10).Expand(-8, -8, -8, -8)
	if b.W != 0 || b.H != 0 {
		t.Fatalf("expected collapsed bound, got %+v", b)
	}
	if b.Center() != V(5, 5) {
		t.Fatalf("collapse should keep the center: %+v", b.Center())
	}
	g := B(10, 20, 100, 50).Expand(1, 2, 3, 4)
	if g.X != 9 || g.Y != 18 || g.W != 104 || g.H != 56 {
		t.Fatalf("unexpected expand: %+v", g)
	}
}

func TestBoundRotationAboutCenter(t *testing.T) {
	b := Bound{X: 0, Y: 0, W: 100, H: 50, Rotate: 90}
	mids := b.Midpoints()
	// top midpoint (50,0) rotated 90 degrees about (50,25) lands at (75,25)
	if !mids[0].Equal(V(75, 25), 1e-9) {
		t.Fatalf("rotated top midpoint: %+v", mids[0])
	}
	local := b.ToLocal(mids[0])
	if !local.Equal(V(50, 0), 1e-9) {
		t.Fatalf("to local: %+v", local)
	}
	if n := b.EdgeNormal(V(0.5, 0)); !n.Equal(V(1, 0), 1e-9) {
		t.Fatalf("rotated normal: %+v", n)
	}
	aabb := b.AABB()
	if !Near(aabb.W, 50, 1e-9) || !Near(aabb.H, 100, 1e-9) {
		t.Fatalf("aabb: %+v", aabb)
	}
}

func TestBoundContains(t *testing.T) {
	b := B(0, 0, 100, 100)
	if !b.ContainsPoint(V(100, 50), 0) {
		t.Fatalf("edge point should be contained")
	}
	if b.StrictlyContains(V(100, 50), 0) {
		t.Fatalf("edge point is not strictly inside")
	}
	if !b.ContainsPoint(V(100.5, 50), 1) {
		t.Fatalf("tolerance ignored")
	}
	u := b.Union(B(200, -10, 10, 10))
	if u.X != 0 || u.Y != -10 || u.W != 210 || u.H != 110 {
		t.Fatalf("union: %+v", u)
	}
}

func TestLineIntersections(t *testing.T) {
	a := Line{V(0, 0), V(10, 10)}
	b := Line{V(0, 10), V(10, 0)}
	p, ok := IntersectSegments(a, b)
	if !ok || !p.Equal(V(5, 5), 1e-12) {
		t.Fatalf("segments: %v %+v", ok, p)
	}
	if _, ok := IntersectSegments(a, Line{V(20, 0), V(30, -10)}); ok {
		t.Fatalf("disjoint segments should not intersect")
	}
	if _, ok := IntersectLines(a, Line{V(1, 0), V(11, 10)}); ok {
		t.Fatalf("parallel lines should not intersect")
	}
	f := Line{V(0, 0), V(10, 0)}.Foot(V(3, 7))
	if f != V(3, 0) {
		t.Fatalf("foot: %+v", f)
	}
	hit, tt, ok := IntersectRay(V(50, 50), V(1, 0), Line{V(100, 0), V(100, 100)})
	if !ok || hit != V(100, 50) || tt != 50 {
		t.Fatalf("ray: %v %+v %v", ok, hit, tt)
	}
}

func TestCubicExactBounds(t *testing.T) {
	c := Cubic{V(0, 0), V(0, 100), V(100, 100), V(100, 0)}
	if m := c.At(0.5); !m.Equal(V(50, 75), 1e-9) {
		t.Fatalf("midpoint: %+v", m)
	}
	b := c.Bounds()
	// the control hull reaches y=100, the curve only y=75
	if !Near(b.H, 75, 1e-9) || b.W != 100 {
		t.Fatalf("bounds: %+v", b)
	}
	if l := (Cubic{V(0, 0), V(0, 0), V(10, 0), V(10, 0)}).Length(32); math.Abs(l-10) > 1e-6 {
		t.Fatalf("length: %v", l)
	}
}
