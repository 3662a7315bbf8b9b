/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goconnector/internal/anchor"
	"goconnector/internal/domain"
	"goconnector/internal/undo"
	"goconnector/internal/vector"
)

// ErrNotEndpoint is returned when an end-only drag targets an interior point.
var ErrNotEndpoint = errors.New("point is not an endpoint")

// DragSession is one interactive edit of a connector point. Moves apply
// immediately; Commit finalizes and Cancel restores the stashed state.
type DragSession struct {
	g     *Generator
	c     *domain.Connector
	index int
	stash *domain.Connector
	moved bool
	done  bool
}

// BeginDrag stashes the connector and marks it locally updating.
func (g *Generator) BeginDrag(c *domain.Connector, index int) *DragSession {
	s := &DragSession{g: g, c: c, index: index, stash: c.Clone()}
	c.Flags.LocalUpdating = true
	return s
}

// Index is the current index of the dragged point.
func (s *DragSession) Index() int { return s.index }

// Move places the dragged point at pos.
func (s *DragSession) Move(pos vector.Vec2) error {
	idx, err := s.g.MovePoint(s.c, s.index, pos)
	if err != nil {
		return err
	}
	s.index, s.moved = idx, true
	return nil
}

// MoveEndpoint snaps the cursor against src and re-attaches the dragged
// end to the result.
func (s *DragSession) MoveEndpoint(src anchor.SnapSource, cursor vector.Vec2, viewport vector.Bound, opts anchor.SnapOptions) (anchor.SnapResult, error) {
	n := len(s.c.Path)
	if s.index != 0 && s.index != n-1 {
		return anchor.SnapResult{}, fmt.Errorf("drag %s point %d: %w", s.c.ID, s.index, ErrNotEndpoint)
	}
	if opts.Offset <= 0 {
		opts.Offset = s.g.opts.AnchorOffset
	}
	r := anchor.Snap(src, cursor, viewport, nil, opts)

	abs := s.c.AbsolutePath()
	opposite := abs[n-1].Vec()
	if s.index == n-1 {
		opposite = abs[0].Vec()
	}
	pt, err := s.g.resolver.ResolveEndpoint(r.Connection, opposite)
	if err != nil {
		return r, err
	}
	if s.index == 0 {
		s.c.Source = r.Connection
	} else {
		s.c.Target = r.Connection
	}
	var bound *vector.Bound
	if r.Connection.IsAttached() {
		if sh, ok := s.g.shapes.ShapeByID(r.Connection.ShapeID); ok {
			b := sh.Bound()
			bound = &b
		}
	}
	idx, err := s.g.movePoint(s.c, s.index, pt, bound)
	if err != nil {
		return r, err
	}
	s.index, s.moved = idx, true
	return r, nil
}

// Commit finalizes the drag. Without movement it only clears the transient
// state. Otherwise it collapses collinear points, runs one settle recompute
// and records the edit in the history.
func (s *DragSession) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	s.c.Flags.LocalUpdating = false
	if !s.moved {
		return nil
	}
	s.g.RemoveExtraPoints(s.c)
	if err := s.g.RecomputeFromEnds(s.c); err != nil && !errors.Is(err, anchor.ErrUnresolvable) {
		return err
	}
	if s.g.history != nil {
		before, err := encodeState(s.stash)
		if err != nil {
			return err
		}
		after, err := encodeState(s.c)
		if err != nil {
			return err
		}
		s.g.history.Push(undo.Entry{ConnectorID: s.c.ID, Before: before, After: after, TS: time.Now()})
	}
	return nil
}

// Cancel restores the connector as it was when the drag began.
func (s *DragSession) Cancel() {
	if s.done {
		return
	}
	s.done = true
	restore(s.c, s.stash)
	s.c.Flags = s.stash.Flags
	s.g.notify(s.c)
}

// Undo restores the connector to its state before the latest committed
// edit. It reports false when there is nothing to undo.
func (g *Generator) Undo(c *domain.Connector) (bool, error) {
	if g.history == nil {
		return false, nil
	}
	e, ok := g.history.Undo(c.ID)
	if !ok {
		return false, nil
	}
	return true, g.applyState(c, e.Before)
}

// Redo re-applies the latest undone edit.
func (g *Generator) Redo(c *domain.Connector) (bool, error) {
	if g.history == nil {
		return false, nil
	}
	e, ok := g.history.Redo(c.ID)
	if !ok {
		return false, nil
	}
	return true, g.applyState(c, e.After)
}

// state is the part of a connector a drag can change.
type state struct {
	Source domain.Connection  `json:"source"`
	Target domain.Connection  `json:"target"`
	Path   []domain.PathPoint `json:"path"`
	Bound  vector.Bound       `json:"xywh"`
	Label  *domain.Label      `json:"label,omitempty"`
}

func encodeState(c *domain.Connector) ([]byte, error) {
	return json.Marshal(state{Source: c.Source, Target: c.Target, Path: c.Path, Bound: c.Bound, Label: c.Label})
}

func (g *Generator) applyState(c *domain.Connector, b []byte) error {
	var st state
	if err := json.Unmarshal(b, &st); err != nil {
		return fmt.Errorf("restore %s: %w", c.ID, err)
	}
	restore(c, &domain.Connector{Source: st.Source, Target: st.Target, Path: st.Path, Bound: st.Bound, Label: st.Label})
	g.notify(c)
	return nil
}

func restore(c, from *domain.Connector) {
	snap := from.Clone()
	c.Source, c.Target = snap.Source, snap.Target
	c.Path, c.Bound, c.Label = snap.Path, snap.Bound, snap.Label
}

func (g *Generator) notify(c *domain.Connector) {
	for _, fn := range g.listeners {
		fn(c)
	}
}
