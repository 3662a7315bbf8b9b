/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model of a connector: its path points, its two
// connections and the derived absolute view consumed by renderers.

import (
	"errors"
	"fmt"
	"strings"

	"goconnector/internal/vector"
)

var (
	// ErrConnectorAnchor is returned when a connection references another connector.
	ErrConnectorAnchor = errors.New("connectors cannot anchor to connectors")
	// ErrUnknownConnector is returned when a connector id is not registered.
	ErrUnknownConnector = errors.New("unknown connector")
	// ErrUnknownShape is returned when a shape id is not registered.
	ErrUnknownShape = errors.New("unknown shape")
	// ErrDuplicateID is returned when an id is already taken by another item.
	ErrDuplicateID = errors.New("duplicate id")
)

// Mode selects the path generator of a connector.
type Mode int

const (
	ModeStraight Mode = iota
	ModeCurve
	ModeOrthogonal
)

func (m Mode) String() string {
	switch m {
	case ModeCurve:
		return "curve"
	case ModeOrthogonal:
		return "orthogonal"
	default:
		return "straight"
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "straight":
		return ModeStraight, nil
	case "curve":
		return ModeCurve, nil
	case "orthogonal":
		return ModeOrthogonal, nil
	}
	return ModeStraight, fmt.Errorf("unknown connector mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PinnedAxis marks coordinates that automatic re-routing must not alter.
type PinnedAxis struct {
	X bool
	Y bool
}

// PathPoint is one element of a connector path. In and Out are offsets
// relative to the point; Tangent is the outward direction at anchors.
type PathPoint struct {
	X, Y    float64
	Tangent vector.Vec2
	In      vector.Vec2
	Out     vector.Vec2
	Pinned  PinnedAxis
}

// P returns an unpinned point without tangent or controls.
func P(x, y float64) PathPoint { return PathPoint{X: x, Y: y} }

// Pt converts a vector into a bare path point.
func Pt(v vector.Vec2) PathPoint { return PathPoint{X: v.X, Y: v.Y} }

func (p PathPoint) Vec() vector.Vec2 { return vector.Vec2{X: p.X, Y: p.Y} }

// Moved returns a copy of p placed at v, keeping tangent, controls and pins.
func (p PathPoint) Moved(v vector.Vec2) PathPoint {
	p.X, p.Y = v.X, v.Y
	return p
}

// Translate shifts the position only; tangent and controls are relative.
func (p PathPoint) Translate(d vector.Vec2) PathPoint {
	p.X += d.X
	p.Y += d.Y
	return p
}

// AbsIn and AbsOut return the absolute control points.
func (p PathPoint) AbsIn() vector.Vec2  { return p.Vec().Add(p.In) }
func (p PathPoint) AbsOut() vector.Vec2 { return p.Vec().Add(p.Out) }

// Connection is one end of a connector. When ShapeID is set it governs the
// position; Position is then relative to the shape bound and nil means auto.
// Without ShapeID the Absolute point is used verbatim.
type Connection struct {
	ShapeID  string       `json:"id,omitempty"`
	Position *vector.Vec2 `json:"position,omitempty"`
	Absolute *vector.Vec2 `json:"absolute,omitempty"`
}

// Free returns an unattached connection at p.
func Free(p vector.Vec2) Connection { return Connection{Absolute: &p} }

// Attached returns a connection to shape id at rel, or auto when rel is nil.
func Attached(id string, rel *vector.Vec2) Connection {
	c := Connection{ShapeID: id}
	if rel != nil {
		r := *rel
		c.Position = &r
	}
	return c
}

func (c Connection) IsAttached() bool { return c.ShapeID != "" }
func (c Connection) IsAuto() bool     { return c.ShapeID != "" && c.Position == nil }

func (c Connection) clone() Connection {
	out := Connection{ShapeID: c.ShapeID}
	if c.Position != nil {
		v := *c.Position
		out.Position = &v
	}
	if c.Absolute != nil {
		v := *c.Absolute
		out.Absolute = &v
	}
	return out
}

// Label is text placed along the path at a fractional offset.
type Label struct {
	Text     string      `json:"text"`
	Offset   float64     `json:"offset"`
	Position vector.Vec2 `json:"position"`
}

// Flags hold transient editing state. They are never serialized.
type Flags struct {
	// LocalUpdating is set while a drag owns the path. Batched recomputes
	// leave such connectors queued until the drag ends.
	LocalUpdating bool
	// ModeUpdating is set when a mode switch requires a full re-route.
	ModeUpdating bool
}

// Connector is a routed line between two connections. Path is stored
// relative to the origin of Bound.
type Connector struct {
	ID       string       `json:"id"`
	Source   Connection   `json:"source"`
	Target   Connection   `json:"target"`
	Mode     Mode         `json:"mode"`
	Path     []PathPoint  `json:"path"`
	Bound    vector.Bound `json:"xywh"`
	Rotation float64      `json:"rotate,omitempty"`
	Label    *Label       `json:"label,omitempty"`
	Stroke   string       `json:"stroke,omitempty"`
	Flags    Flags        `json:"-"`
}

// NewConnector creates a connector with the default two-point path between
// the resolved free positions of its ends (origin for attached ends).
func NewConnector(id string, src, dst Connection, mode Mode) *Connector {
	c := &Connector{ID: id, Source: src, Target: dst, Mode: mode}
	var a, b vector.Vec2
	if src.Absolute != nil {
		a = *src.Absolute
	}
	if dst.Absolute != nil {
		b = *dst.Absolute
	}
	c.SetAbsolutePath([]PathPoint{Pt(a), Pt(b)}, vector.BoundFromPoints([]vector.Vec2{a, b}))
	return c
}

// AbsolutePath derives the world-space path from Path and Bound.
func (c *Connector) AbsolutePath() []PathPoint {
	origin := c.Bound.Min()
	out := make([]PathPoint, len(c.Path))
	for i, p := range c.Path {
		out[i] = p.Translate(origin)
	}
	return out
}

// SetAbsolutePath replaces Path and Bound together, storing abs relative to
// the origin of bound.
func (c *Connector) SetAbsolutePath(abs []PathPoint, bound vector.Bound) {
	origin := bound.Min().Neg()
	rel := make([]PathPoint, len(abs))
	for i, p := range abs {
		rel[i] = p.Translate(origin)
	}
	c.Path = rel
	c.Bound = bound
}

// Clone returns a deep copy of the connector.
func (c *Connector) Clone() *Connector {
	out := *c
	out.Source = c.Source.clone()
	out.Target = c.Target.clone()
	out.Path = append([]PathPoint(nil), c.Path...)
	if c.Label != nil {
		l := *c.Label
		out.Label = &l
	}
	return &out
}
