/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connector

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"goconnector/internal/anchor"
	"goconnector/internal/domain"
	"goconnector/internal/ortho"
	"goconnector/internal/vector"
)

func twoBoxes(t *testing.T, bx, by float64) *domain.Document {
	t.Helper()
	d := domain.NewDocument()
	if err := d.AddShape(&domain.RectShape{ShapeID: "a", Box: vector.B(0, 0, 100, 100)}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := d.AddShape(&domain.RectShape{ShapeID: "b", Box: vector.B(bx, by, 100, 100)}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	return d
}

func samePath(a, b []domain.PathPoint) bool {
	if len(a) != len(b) {
		return false
	}
	const tol = 1e-9
	for i := range a {
		if !a[i].Vec().Equal(b[i].Vec(), tol) || !a[i].In.Equal(b[i].In, tol) ||
			!a[i].Out.Equal(b[i].Out, tol) || a[i].Pinned != b[i].Pinned {
			return false
		}
	}
	return true
}

func vecs(path []domain.PathPoint) []vector.Vec2 {
	out := make([]vector.Vec2, len(path))
	for i, p := range path {
		out[i] = p.Vec()
	}
	return out
}

func TestStraightFreePoints(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 0)), domain.ModeStraight)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	want := []vector.Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}}
	if got := vecs(c.AbsolutePath()); !reflect.DeepEqual(got, want) {
		t.Fatalf("path: %+v", got)
	}
	if c.Bound != vector.B(0, 0, 100, 0) {
		t.Fatalf("bound: %+v", c.Bound)
	}
}

func TestOrthogonalFacingShapes(t *testing.T) {
	d := twoBoxes(t, 300, 0)
	g := New(d, Options{})
	c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), domain.ModeOrthogonal)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	abs := c.AbsolutePath()
	if abs[0].Vec() != vector.V(100, 50) || abs[len(abs)-1].Vec() != vector.V(300, 50) {
		t.Fatalf("ends: %+v", vecs(abs))
	}
	if len(abs) > 3 {
		t.Fatalf("expected at most one intermediate point: %+v", vecs(abs))
	}
	for _, p := range abs {
		if p.Y != 50 {
			t.Fatalf("point off y=50: %+v", vecs(abs))
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeStraight, domain.ModeCurve, domain.ModeOrthogonal} {
		t.Run(mode.String(), func(t *testing.T) {
			d := twoBoxes(t, 300, 200)
			g := New(d, Options{})
			c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), mode)
			if err := g.RecomputeFromEnds(c); err != nil {
				t.Fatalf("first: %v", err)
			}
			path, bound := append([]domain.PathPoint(nil), c.Path...), c.Bound
			if err := g.RecomputeFromEnds(c); err != nil {
				t.Fatalf("second: %v", err)
			}
			if !samePath(path, c.Path) || !bound.Min().Equal(c.Bound.Min(), 1e-9) {
				t.Fatalf("recompute perturbed the path:\n%+v\n%+v", path, c.Path)
			}
		})
	}
}

func TestEndsMatchResolver(t *testing.T) {
	d := twoBoxes(t, 300, 200)
	g := New(d, Options{})
	rel := vector.V(0.5, 1)
	for _, mode := range []domain.Mode{domain.ModeStraight, domain.ModeCurve} {
		c := domain.NewConnector("c", domain.Attached("a", &rel), domain.Attached("b", nil), mode)
		if err := g.RecomputeFromEnds(c); err != nil {
			t.Fatalf("recompute: %v", err)
		}
		start, end, err := g.Resolver().ResolveEnds(c.Source, c.Target)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		abs := c.AbsolutePath()
		if !abs[0].Vec().Equal(start.Vec(), 1e-9) || !abs[len(abs)-1].Vec().Equal(end.Vec(), 1e-9) {
			t.Fatalf("%s: ends %+v %+v, resolver %+v %+v", mode, abs[0].Vec(), abs[len(abs)-1].Vec(), start.Vec(), end.Vec())
		}
	}
}

func TestOrthogonalValidityAfterShapeMoves(t *testing.T) {
	d := twoBoxes(t, 300, 0)
	g := New(d, Options{})
	c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), domain.ModeOrthogonal)
	for _, pos := range []vector.Vec2{{X: 300, Y: 0}, {X: 250, Y: 250}, {X: -300, Y: 40}, {X: 20, Y: 260}, {X: 160, Y: -180}} {
		if err := d.UpdateShape("b", func(s *domain.RectShape) { s.Box.X, s.Box.Y = pos.X, pos.Y }); err != nil {
			t.Fatalf("move b: %v", err)
		}
		if err := g.RecomputeFromEnds(c); err != nil {
			t.Fatalf("recompute at %+v: %v", pos, err)
		}
		abs := c.AbsolutePath()
		if !ortho.IsOrthogonal(abs) {
			t.Fatalf("not orthogonal at %+v: %+v", pos, vecs(abs))
		}
		bb := vector.B(pos.X, pos.Y, 100, 100)
		for i := 1; i < len(abs); i++ {
			mid := abs[i-1].Vec().Lerp(abs[i].Vec(), 0.5)
			if vector.B(0, 0, 100, 100).StrictlyContains(mid, 1e-6) || bb.StrictlyContains(mid, 1e-6) {
				t.Fatalf("segment %d crosses a shape at %+v: %+v", i, pos, vecs(abs))
			}
		}
	}
}

func TestStalePathWhenShapeRemoved(t *testing.T) {
	d := twoBoxes(t, 300, 0)
	g := New(d, Options{})
	c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), domain.ModeOrthogonal)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	before := append([]domain.PathPoint(nil), c.Path...)
	if err := d.RemoveShape("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if g.HasValidEndpoints(c) {
		t.Fatalf("expected invalid endpoints")
	}
	if err := g.RecomputeFromEnds(c); !errors.Is(err, anchor.ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
	if !reflect.DeepEqual(before, c.Path) {
		t.Fatalf("stale path must be preserved")
	}

	changed, err := g.FreezeMissingEndpoints(c)
	if err != nil || !changed {
		t.Fatalf("freeze: changed=%v err=%v", changed, err)
	}
	if c.Source.IsAttached() || *c.Source.Absolute != vector.V(100, 50) {
		t.Fatalf("source not frozen at last position: %+v", c.Source)
	}
	if !g.HasValidEndpoints(c) {
		t.Fatalf("frozen connector must be routable")
	}
}

func TestCurveInsertMidpoint(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 100)), domain.ModeCurve)
	if !g.AddPointIntoPath(c, 1) {
		t.Fatalf("insert refused")
	}
	abs := c.AbsolutePath()
	if len(abs) != 3 || !abs[1].Vec().Equal(vector.V(50, 50), 1e-9) {
		t.Fatalf("midpoint: %+v", vecs(abs))
	}
	if g.AddPointIntoPath(c, 0) || g.AddPointIntoPath(c, 3) {
		t.Fatalf("insert outside the interior must be a no-op")
	}
}

func TestCurveInsertKeepsShape(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 0)), domain.ModeCurve)
	abs := c.AbsolutePath()
	abs[0].Out = vector.V(0, 100)
	abs[1].In = vector.V(0, 100)
	c.SetAbsolutePath(abs, pathBound(abs, domain.ModeCurve))
	want := segmentCubic(abs[0], abs[1]).At(0.5)

	g.AddPointIntoPath(c, 1)
	got := c.AbsolutePath()
	if !got[1].Vec().Equal(want, 1e-9) || !got[1].Vec().Equal(vector.V(50, 75), 1e-9) {
		t.Fatalf("curve midpoint: %+v want %+v", got[1].Vec(), want)
	}
	if q := segmentCubic(got[0], got[1]).At(0.5); !q.Equal(segmentCubic(abs[0], abs[1]).At(0.25), 1e-9) {
		t.Fatalf("split changed the curve: %+v", q)
	}
	if c.Bound.H != 75 {
		t.Fatalf("curve bound must follow the curve, not its controls: %+v", c.Bound)
	}
}

func TestStraightInsertAndMove(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 0)), domain.ModeStraight)
	g.AddPointIntoPath(c, 1)
	idx, err := g.MovePoint(c, 1, vector.V(50, 40))
	if err != nil || idx != 1 {
		t.Fatalf("move: %d %v", idx, err)
	}
	abs := c.AbsolutePath()
	if abs[1].Vec() != vector.V(50, 40) || c.Bound != vector.B(0, 0, 100, 40) {
		t.Fatalf("unexpected path %+v bound %+v", vecs(abs), c.Bound)
	}
	if _, err := g.MovePoint(c, 5, vector.V(0, 0)); !errors.Is(err, ErrBadIndex) {
		t.Fatalf("expected ErrBadIndex, got %v", err)
	}
	// interior points survive a recompute in straight mode
	if err := g.RecomputeFromEnds(c); err != nil || c.AbsolutePath()[1].Vec() != vector.V(50, 40) {
		t.Fatalf("interior point lost: %v", err)
	}
}

func TestOrthogonalMoveAlignsToFixedSegment(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(300, 200)), domain.ModeOrthogonal)
	path := []domain.PathPoint{
		domain.P(0, 0), domain.P(100, 0), domain.P(100, 100),
		domain.P(200, 100), domain.P(200, 200), domain.P(300, 200),
	}
	c.SetAbsolutePath(path, pathBound(path, domain.ModeOrthogonal))

	idx, err := g.MovePoint(c, 2, vector.V(150, 195))
	if err != nil || idx != 2 {
		t.Fatalf("move: %d %v", idx, err)
	}
	abs := c.AbsolutePath()
	if abs[2].Y != 200 || abs[3].Y != 200 {
		t.Fatalf("expected exact snap onto y=200: %+v", vecs(abs))
	}
	if abs[1].X != 150 || !abs[1].Pinned.X || !abs[3].Pinned.Y {
		t.Fatalf("neighbours must follow and be pinned: %+v", abs)
	}
	if !ortho.IsOrthogonal(abs) {
		t.Fatalf("not orthogonal: %+v", vecs(abs))
	}
}

func TestOrthogonalMoveNextToEndInsertsElbows(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(300, 200)), domain.ModeOrthogonal)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := vecs(c.AbsolutePath()); len(got) != 3 || got[1] != vector.V(300, 0) {
		t.Fatalf("unexpected elbow route: %+v", got)
	}
	idx, err := g.MovePoint(c, 1, vector.V(200, 100))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	abs := c.AbsolutePath()
	if idx != 3 || abs[idx].Vec() != vector.V(200, 100) {
		t.Fatalf("index %d path %+v", idx, vecs(abs))
	}
	if abs[0].Vec() != vector.V(0, 0) || abs[len(abs)-1].Vec() != vector.V(300, 200) {
		t.Fatalf("ends moved: %+v", vecs(abs))
	}
	if !ortho.IsOrthogonal(abs) {
		t.Fatalf("not orthogonal: %+v", vecs(abs))
	}
}

func TestRemoveExtraPointsIsIdempotent(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(300, 100)), domain.ModeOrthogonal)
	path := []domain.PathPoint{domain.P(0, 0), domain.P(50, 0), domain.P(100, 0), domain.P(100, 100), domain.P(300, 100)}
	c.SetAbsolutePath(path, pathBound(path, c.Mode))
	g.RemoveExtraPoints(c)
	once := append([]domain.PathPoint(nil), c.Path...)
	if len(once) != 4 {
		t.Fatalf("collinear point kept: %+v", vecs(c.AbsolutePath()))
	}
	g.RemoveExtraPoints(c)
	if !reflect.DeepEqual(once, c.Path) {
		t.Fatalf("second pass changed the path")
	}

	c.Mode = domain.ModeStraight
	c.SetAbsolutePath(path, pathBound(path, c.Mode))
	g.RemoveExtraPoints(c)
	if len(c.Path) != len(path) {
		t.Fatalf("non-orthogonal paths must be left alone")
	}
}

func TestSetModeDiscardsNonOrthogonalPath(t *testing.T) {
	d := twoBoxes(t, 300, 200)
	g := New(d, Options{})
	c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), domain.ModeCurve)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	g.AddPointIntoPath(c, 1)
	if _, err := g.MovePoint(c, 1, vector.V(170, 90)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := g.SetMode(c, domain.ModeOrthogonal); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if c.Flags.ModeUpdating {
		t.Fatalf("mode flag must clear after the re-route")
	}
	if !ortho.IsOrthogonal(c.AbsolutePath()) {
		t.Fatalf("not orthogonal: %+v", vecs(c.AbsolutePath()))
	}
}

func TestSetModeLeavingOrthogonalDropsElbows(t *testing.T) {
	d := twoBoxes(t, 300, 200)
	g := New(d, Options{})
	for _, mode := range []domain.Mode{domain.ModeStraight, domain.ModeCurve} {
		c := domain.NewConnector("c", domain.Attached("a", nil), domain.Attached("b", nil), domain.ModeOrthogonal)
		if err := g.RecomputeFromEnds(c); err != nil {
			t.Fatalf("recompute: %v", err)
		}
		if len(c.Path) <= 2 {
			t.Fatalf("expected an elbowed route, got %+v", vecs(c.AbsolutePath()))
		}
		if err := g.SetMode(c, mode); err != nil {
			t.Fatalf("%s: set mode: %v", mode, err)
		}
		abs := c.AbsolutePath()
		if len(abs) != 2 {
			t.Fatalf("%s: mode switch kept waypoints %+v", mode, vecs(abs))
		}
		start, end, err := g.Resolver().ResolveEnds(c.Source, c.Target)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !abs[0].Vec().Equal(start.Vec(), 1e-9) || !abs[1].Vec().Equal(end.Vec(), 1e-9) {
			t.Fatalf("%s: ends %+v, resolver %+v %+v", mode, vecs(abs), start.Vec(), end.Vec())
		}
		if c.Flags.ModeUpdating {
			t.Fatalf("%s: mode flag must clear", mode)
		}
		if mode == domain.ModeStraight && (!abs[0].Out.IsZero() || !abs[1].In.IsZero()) {
			t.Fatalf("straight path carries controls: %+v", abs)
		}
	}
}

func TestLabelFollowsPath(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 0)), domain.ModeStraight)
	c.Label = &domain.Label{Text: "flow", Offset: 0.25}
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if c.Label.Position != vector.V(25, 0) {
		t.Fatalf("label position: %+v", c.Label.Position)
	}
	if _, err := g.MovePoint(c, 1, vector.V(200, 0)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if c.Label.Position != vector.V(50, 0) {
		t.Fatalf("label must follow the path: %+v", c.Label.Position)
	}
}

func TestChangeListener(t *testing.T) {
	g := New(domain.NewDocument(), Options{})
	var seen []string
	g.OnChange(func(c *domain.Connector) { seen = append(seen, c.ID) })
	c := domain.NewConnector("c1", domain.Free(vector.V(0, 0)), domain.Free(vector.V(10, 0)), domain.ModeStraight)
	if err := g.RecomputeFromEnds(c); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(seen) != 1 || seen[0] != "c1" {
		t.Fatalf("listener calls: %v", seen)
	}
}

func TestOutline(t *testing.T) {
	c := domain.NewConnector("c", domain.Free(vector.V(0, 0)), domain.Free(vector.V(100, 0)), domain.ModeCurve)
	p := Outline(c)
	if len(p.Cmds) != 2 || p.Cmds[1].Op != vector.CubicTo {
		t.Fatalf("outline: %+v", p.Cmds)
	}
	if b := p.Bounds(); math.Abs(b.W-100) > 1e-9 {
		t.Fatalf("outline bounds: %+v", b)
	}
}
