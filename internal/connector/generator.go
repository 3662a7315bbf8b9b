/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package connector owns every mutation of a connector path. It resolves
// the ends, runs the mode specific generator and writes path, bound and
// label back to the connector in one step.
package connector

import (
	"errors"
	"fmt"
	"log/slog"

	"goconnector/internal/anchor"
	"goconnector/internal/domain"
	applog "goconnector/internal/log"
	"goconnector/internal/ortho"
	"goconnector/internal/undo"
	"goconnector/internal/vector"
)

// ErrBadIndex is returned for a point index outside the path.
var ErrBadIndex = errors.New("path index out of range")

// Defaults used when Options fields are zero.
const (
	DefaultAlignThreshold  = 10
	DefaultCurveMinControl = 50
)

// Options tunes the generator.
type Options struct {
	Router ortho.Options
	// AlignThreshold snaps a dragged orthogonal segment onto a parallel
	// segment closer than this.
	AlignThreshold float64
	// CurveMinControl is the minimum control length at attached curve ends.
	CurveMinControl float64
	// AnchorOffset is the projection distance of cardinal anchors.
	AnchorOffset float64
}

// Generator computes and writes back connector paths. Shapes are looked up
// on every call; the generator never caches them.
type Generator struct {
	shapes    domain.ShapeLookup
	resolver  *anchor.Resolver
	router    *ortho.Router
	opts      Options
	history   *undo.Manager
	listeners []func(*domain.Connector)
	log       *slog.Logger
}

// New returns a generator resolving shapes through lookup.
func New(lookup domain.ShapeLookup, opts Options) *Generator {
	if opts.AlignThreshold <= 0 {
		opts.AlignThreshold = DefaultAlignThreshold
	}
	if opts.CurveMinControl <= 0 {
		opts.CurveMinControl = DefaultCurveMinControl
	}
	if opts.AnchorOffset <= 0 {
		opts.AnchorOffset = anchor.DefaultOffset
	}
	if opts.Router.Clearance <= 0 {
		opts.Router.Clearance = ortho.DefaultClearance
	}
	res := anchor.NewResolver(lookup)
	res.Offset = opts.AnchorOffset
	return &Generator{
		shapes:   lookup,
		resolver: res,
		router:   ortho.NewRouter(opts.Router),
		opts:     opts,
		log:      applog.WithComponent("connector"),
	}
}

// WithHistory records committed drag edits in h.
func (g *Generator) WithHistory(h *undo.Manager) *Generator {
	g.history = h
	return g
}

// OnChange registers fn to be called after every path write-back.
func (g *Generator) OnChange(fn func(*domain.Connector)) {
	g.listeners = append(g.listeners, fn)
}

// Resolver exposes the anchor resolver used by the generator.
func (g *Generator) Resolver() *anchor.Resolver { return g.resolver }

// HasValidEndpoints reports whether both ends can be resolved right now.
// False means the connector must not be routed.
func (g *Generator) HasValidEndpoints(c *domain.Connector) bool {
	return g.resolver.Valid(c.Source) && g.resolver.Valid(c.Target)
}

// RecomputeFromEnds resolves both ends and regenerates the path for the
// connector's mode. An unresolvable end leaves the path untouched and
// returns an error wrapping anchor.ErrUnresolvable.
func (g *Generator) RecomputeFromEnds(c *domain.Connector) error {
	lg := applog.WithOperation(g.log, "recompute").With("connector", c.ID)
	if !g.HasValidEndpoints(c) {
		lg.Debug("endpoint unresolvable, keeping stale path")
		return fmt.Errorf("recompute %s: %w", c.ID, anchor.ErrUnresolvable)
	}
	start, end, err := g.resolver.ResolveEnds(c.Source, c.Target)
	if err != nil {
		return fmt.Errorf("recompute %s: %w", c.ID, err)
	}
	old := c.AbsolutePath()
	// a mode switch keeps waypoints only when they are already orthogonal
	// and the new mode is orthogonal too
	if c.Flags.ModeUpdating && (c.Mode != domain.ModeOrthogonal || !ortho.IsOrthogonal(old)) {
		old = nil
	}

	var abs []domain.PathPoint
	switch c.Mode {
	case domain.ModeOrthogonal:
		abs, err = g.router.Reroute(g.end(c.Source, start), g.end(c.Target, end), withEnds(old, start, end))
		if err != nil {
			lg.Error("orthogonal route failed", "err", err)
			return fmt.Errorf("recompute %s: %w", c.ID, err)
		}
	case domain.ModeCurve:
		abs = withEnds(old, start, end)
		if !degenerate(abs) {
			smoothAll(abs, c.Source.IsAttached(), c.Target.IsAttached(), g.opts.CurveMinControl)
		}
	default:
		abs = withEnds(old, start, end)
		for i := range abs {
			abs[i].In, abs[i].Out = vector.Vec2{}, vector.Vec2{}
		}
	}
	c.Flags.ModeUpdating = false
	g.writeBack(c, abs)
	lg.Debug("recomputed", "mode", c.Mode, "points", len(abs))
	return nil
}

// SetMode switches the connector to mode and re-routes it.
func (g *Generator) SetMode(c *domain.Connector, mode domain.Mode) error {
	if c.Mode == mode {
		return nil
	}
	c.Mode = mode
	c.Flags.ModeUpdating = true
	return g.RecomputeFromEnds(c)
}

// FreezeMissingEndpoints detaches ends whose shape is gone, turning them
// into free points at the last known path ends. It reports whether any end
// changed; the connector is recomputed in that case.
func (g *Generator) FreezeMissingEndpoints(c *domain.Connector) (bool, error) {
	abs := c.AbsolutePath()
	if len(abs) < 2 {
		return false, nil
	}
	changed := false
	if !g.resolver.Valid(c.Source) {
		c.Source = domain.Free(abs[0].Vec())
		changed = true
	}
	if !g.resolver.Valid(c.Target) {
		c.Target = domain.Free(abs[len(abs)-1].Vec())
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, g.RecomputeFromEnds(c)
}

// MovePoint moves point index to pos and returns the index the point has
// afterwards. Orthogonal moves may insert points ahead of it.
func (g *Generator) MovePoint(c *domain.Connector, index int, pos vector.Vec2) (int, error) {
	return g.movePoint(c, index, domain.Pt(pos), nil)
}

func (g *Generator) movePoint(c *domain.Connector, index int, pt domain.PathPoint, bound *vector.Bound) (int, error) {
	abs := c.AbsolutePath()
	n := len(abs)
	if index < 0 || index >= n {
		return index, fmt.Errorf("move point %d of %s: %w", index, c.ID, ErrBadIndex)
	}
	endpoint := index == 0 || index == n-1

	switch {
	case c.Mode == domain.ModeOrthogonal && endpoint:
		out, idx, err := g.moveOrthogonalEnd(c, abs, index, pt, bound)
		if err != nil {
			return index, err
		}
		abs, index = out, idx
	case c.Mode == domain.ModeOrthogonal:
		abs, index = g.moveOrthogonalInterior(abs, index, pt.Vec())
	default:
		p := abs[index].Moved(pt.Vec())
		p.Pinned = domain.PinnedAxis{}
		if endpoint {
			p.Tangent = pt.Tangent
		}
		abs[index] = p
		if c.Mode == domain.ModeCurve && !degenerate(abs) {
			smoothAt(abs, index, c.Source.IsAttached(), c.Target.IsAttached(), g.opts.CurveMinControl)
		}
	}
	g.writeBack(c, abs)
	return index, nil
}

// AddPointIntoPath inserts a point between insertIndex-1 and insertIndex.
// Curve paths are split on the Bézier at t=0.5 so the drawn curve keeps
// its shape. It reports false when insertIndex is not strictly interior.
func (g *Generator) AddPointIntoPath(c *domain.Connector, insertIndex int) bool {
	abs := c.AbsolutePath()
	if insertIndex <= 0 || insertIndex >= len(abs) {
		return false
	}
	prev, next := abs[insertIndex-1], abs[insertIndex]
	var mid domain.PathPoint
	if c.Mode == domain.ModeCurve {
		left, right := segmentCubic(prev, next).Split(0.5)
		mid = domain.Pt(left.P3)
		mid.In = left.P2.Sub(left.P3)
		mid.Out = right.P1.Sub(right.P0)
		mid.Tangent = mid.Out.Normalize()
		abs[insertIndex-1].Out = left.P1.Sub(left.P0)
		abs[insertIndex].In = right.P2.Sub(right.P3)
	} else {
		mid = domain.Pt(prev.Vec().Lerp(next.Vec(), 0.5))
	}
	out := make([]domain.PathPoint, 0, len(abs)+1)
	out = append(out, abs[:insertIndex]...)
	out = append(out, mid)
	out = append(out, abs[insertIndex:]...)
	g.writeBack(c, out)
	return true
}

// RemoveExtraPoints collapses collinear runs of an orthogonal path. Other
// modes are left alone.
func (g *Generator) RemoveExtraPoints(c *domain.Connector) {
	if c.Mode != domain.ModeOrthogonal {
		return
	}
	abs := c.AbsolutePath()
	merged := ortho.MergeCollinear(abs, false)
	if len(merged) == len(abs) {
		return
	}
	g.writeBack(c, merged)
}

// end builds a router end for a resolved point, carrying the shape bound
// when the connection is attached.
func (g *Generator) end(conn domain.Connection, p domain.PathPoint) ortho.End {
	e := ortho.End{Point: p}
	if conn.IsAttached() {
		if s, ok := g.shapes.ShapeByID(conn.ShapeID); ok && s != nil {
			b := s.Bound()
			e.Bound = &b
		}
	}
	return e
}

// writeBack stores abs with its bound and refreshes the label.
func (g *Generator) writeBack(c *domain.Connector, abs []domain.PathPoint) {
	c.SetAbsolutePath(abs, pathBound(abs, c.Mode))
	if c.Label != nil {
		c.Label.Position = pointAlong(abs, c.Mode, c.Label.Offset)
	}
	g.notify(c)
}

// withEnds returns a copy of old with its ends replaced. Paths shorter than
// two points become the direct path.
func withEnds(old []domain.PathPoint, start, end domain.PathPoint) []domain.PathPoint {
	if len(old) < 2 {
		return []domain.PathPoint{start, end}
	}
	out := append([]domain.PathPoint(nil), old...)
	out[0], out[len(out)-1] = start, end
	return out
}

// degenerate reports a two point path whose ends coincide.
func degenerate(path []domain.PathPoint) bool {
	return len(path) == 2 && path[0].Vec().Equal(path[1].Vec(), vector.Epsilon)
}

// pathBound is the tight bound of the drawn path. Curves use the exact
// Bézier extent rather than their control points.
func pathBound(abs []domain.PathPoint, mode domain.Mode) vector.Bound {
	if len(abs) == 0 {
		return vector.Bound{}
	}
	if mode != domain.ModeCurve {
		pts := make([]vector.Vec2, len(abs))
		for i, p := range abs {
			pts[i] = p.Vec()
		}
		return vector.BoundFromPoints(pts)
	}
	b := vector.BoundFromPoints([]vector.Vec2{abs[0].Vec()})
	for i := 1; i < len(abs); i++ {
		b = b.Union(segmentCubic(abs[i-1], abs[i]).Bounds())
	}
	return b
}
