/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"sort"
	"sync"

	"goconnector/internal/vector"
)

// EventKind enumerates the change feed notifications.
type EventKind int

const (
	ShapeAdded EventKind = iota
	ShapeUpdated
	ShapeRemoved
)

func (k EventKind) String() string {
	switch k {
	case ShapeAdded:
		return "added"
	case ShapeUpdated:
		return "updated"
	case ShapeRemoved:
		return "removed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Item is the element an event refers to: either a ConnectorItem or a
// ShapeItem. The variant is decided once when the event is emitted.
type Item interface{ isItem() }

type ConnectorItem struct{ Connector *Connector }
type ShapeItem struct{ Shape Shape }

func (ConnectorItem) isItem() {}
func (ShapeItem) isItem()     {}

// Event is one change notification. Changed lists the property names that
// differ for ShapeUpdated: "xywh", "rotate", "source", "target", "mode", ...
type Event struct {
	Kind    EventKind
	ID      string
	Changed []string
	Item    Item
}

// Has reports whether prop is among the changed properties.
func (e Event) Has(prop string) bool {
	for _, c := range e.Changed {
		if c == prop {
			return true
		}
	}
	return false
}

// FileVersion is the current document file format version.
const FileVersion = 1

// File is the persisted form of a document.
type File struct {
	Version    int          `json:"version"`
	Shapes     []*RectShape `json:"shapes"`
	Connectors []*Connector `json:"connectors"`
	Groups     []*Group     `json:"groups,omitempty"`
}

// Document is an in-memory registry of shapes, connectors and groups with a
// synchronous change feed. It implements ShapeLookup for routing calls.
type Document struct {
	mu             sync.RWMutex
	shapes         map[string]*RectShape
	shapeOrder     []string
	connectors     map[string]*Connector
	connectorOrder []string
	groups         map[string]*Group
	listeners      []func(Event)
}

func NewDocument() *Document {
	return &Document{
		shapes:     map[string]*RectShape{},
		connectors: map[string]*Connector{},
		groups:     map[string]*Group{},
	}
}

// NewDocumentFromFile builds a document from its persisted form. No events
// are emitted.
func NewDocumentFromFile(f File) (*Document, error) {
	d := NewDocument()
	for _, s := range f.Shapes {
		if err := d.insertShape(s); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Connectors {
		if err := d.insertConnector(c); err != nil {
			return nil, err
		}
	}
	for _, g := range f.Groups {
		if err := d.AddGroup(g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Snapshot returns a deep copy of the document in persisted form.
func (d *Document) Snapshot() File {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f := File{Version: FileVersion, Shapes: []*RectShape{}, Connectors: []*Connector{}}
	for _, id := range d.shapeOrder {
		s := *d.shapes[id]
		f.Shapes = append(f.Shapes, &s)
	}
	for _, id := range d.connectorOrder {
		f.Connectors = append(f.Connectors, d.connectors[id].Clone())
	}
	for _, g := range d.groups {
		cp := Group{ID: g.ID, Children: append([]string(nil), g.Children...)}
		f.Groups = append(f.Groups, &cp)
	}
	sort.Slice(f.Groups, func(i, j int) bool { return f.Groups[i].ID < f.Groups[j].ID })
	return f
}

// Subscribe registers fn for every subsequent event. Listeners run
// synchronously on the mutating goroutine, after the document lock is released.
func (d *Document) Subscribe(fn func(Event)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Document) emit(ev Event) {
	d.mu.RLock()
	ls := append([]func(Event){}, d.listeners...)
	d.mu.RUnlock()
	for _, fn := range ls {
		fn(ev)
	}
}

func (d *Document) idTaken(id string) bool {
	_, s := d.shapes[id]
	_, c := d.connectors[id]
	return s || c
}

func (d *Document) insertShape(s *RectShape) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.ShapeID == "" {
		return fmt.Errorf("add shape: empty id")
	}
	if d.idTaken(s.ShapeID) {
		return fmt.Errorf("add shape %s: %w", s.ShapeID, ErrDuplicateID)
	}
	d.shapes[s.ShapeID] = s
	d.shapeOrder = append(d.shapeOrder, s.ShapeID)
	return nil
}

// AddShape registers s on top of the z-order.
func (d *Document) AddShape(s *RectShape) error {
	if err := d.insertShape(s); err != nil {
		return err
	}
	d.emit(Event{Kind: ShapeAdded, ID: s.ShapeID, Item: ShapeItem{Shape: s}})
	return nil
}

// UpdateShape applies fn to the shape and emits the changed properties.
func (d *Document) UpdateShape(id string, fn func(*RectShape)) error {
	d.mu.Lock()
	s, ok := d.shapes[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("update shape %s: %w", id, ErrUnknownShape)
	}
	before := *s
	fn(s)
	s.ShapeID = id
	d.mu.Unlock()

	var changed []string
	if before.Box.X != s.Box.X || before.Box.Y != s.Box.Y || before.Box.W != s.Box.W || before.Box.H != s.Box.H {
		changed = append(changed, "xywh")
	}
	if before.Box.Rotate != s.Box.Rotate {
		changed = append(changed, "rotate")
	}
	if before.Text != s.Text {
		changed = append(changed, "text")
	}
	if before.Fill != s.Fill || before.Stroke != s.Stroke {
		changed = append(changed, "style")
	}
	if before.Disabled != s.Disabled {
		changed = append(changed, "connectable")
	}
	if len(changed) > 0 {
		d.emit(Event{Kind: ShapeUpdated, ID: id, Changed: changed, Item: ShapeItem{Shape: s}})
	}
	return nil
}

// RemoveShape deletes a shape. Connectors attached to it keep their ids and
// become unroutable until the reference is valid again or detached.
func (d *Document) RemoveShape(id string) error {
	d.mu.Lock()
	s, ok := d.shapes[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("remove shape %s: %w", id, ErrUnknownShape)
	}
	delete(d.shapes, id)
	d.shapeOrder = removeID(d.shapeOrder, id)
	for _, g := range d.groups {
		g.Children = removeID(g.Children, id)
	}
	d.mu.Unlock()
	d.emit(Event{Kind: ShapeRemoved, ID: id, Item: ShapeItem{Shape: s}})
	return nil
}

func (d *Document) validateConnection(self string, c Connection) error {
	if c.ShapeID == "" {
		return nil
	}
	if _, isConn := d.connectors[c.ShapeID]; isConn || c.ShapeID == self {
		return fmt.Errorf("connection to %s: %w", c.ShapeID, ErrConnectorAnchor)
	}
	return nil
}

func (d *Document) insertConnector(c *Connector) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.ID == "" {
		return fmt.Errorf("add connector: empty id")
	}
	if d.idTaken(c.ID) {
		return fmt.Errorf("add connector %s: %w", c.ID, ErrDuplicateID)
	}
	if err := d.validateConnection(c.ID, c.Source); err != nil {
		return err
	}
	if err := d.validateConnection(c.ID, c.Target); err != nil {
		return err
	}
	for _, other := range d.connectors {
		if other.Source.ShapeID == c.ID || other.Target.ShapeID == c.ID {
			return fmt.Errorf("add connector %s: referenced by %s: %w", c.ID, other.ID, ErrConnectorAnchor)
		}
	}
	d.connectors[c.ID] = c
	d.connectorOrder = append(d.connectorOrder, c.ID)
	return nil
}

// AddConnector registers c. Connections must reference shapes, never
// connectors.
func (d *Document) AddConnector(c *Connector) error {
	if err := d.insertConnector(c); err != nil {
		return err
	}
	d.emit(Event{Kind: ShapeAdded, ID: c.ID, Item: ConnectorItem{Connector: c}})
	return nil
}

// UpdateConnector applies fn to the connector's user-facing fields and emits
// the changed properties. Path and bound are owned by the path generator and
// are written through Connector directly.
func (d *Document) UpdateConnector(id string, fn func(*Connector)) error {
	d.mu.Lock()
	c, ok := d.connectors[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("update connector %s: %w", id, ErrUnknownConnector)
	}
	before := c.Clone()
	fn(c)
	c.ID = id
	if err := d.validateConnection(id, c.Source); err != nil {
		c.Source = before.Source
		d.mu.Unlock()
		return err
	}
	if err := d.validateConnection(id, c.Target); err != nil {
		c.Target = before.Target
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()

	var changed []string
	if !sameConnection(before.Source, c.Source) {
		changed = append(changed, "source")
	}
	if !sameConnection(before.Target, c.Target) {
		changed = append(changed, "target")
	}
	if before.Mode != c.Mode {
		changed = append(changed, "mode")
	}
	if (before.Label == nil) != (c.Label == nil) || (before.Label != nil && *before.Label != *c.Label) {
		changed = append(changed, "label")
	}
	if before.Stroke != c.Stroke {
		changed = append(changed, "style")
	}
	if len(changed) > 0 {
		d.emit(Event{Kind: ShapeUpdated, ID: id, Changed: changed, Item: ConnectorItem{Connector: c}})
	}
	return nil
}

// RemoveConnector deletes a connector.
func (d *Document) RemoveConnector(id string) error {
	d.mu.Lock()
	c, ok := d.connectors[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("remove connector %s: %w", id, ErrUnknownConnector)
	}
	delete(d.connectors, id)
	d.connectorOrder = removeID(d.connectorOrder, id)
	d.mu.Unlock()
	d.emit(Event{Kind: ShapeRemoved, ID: id, Item: ConnectorItem{Connector: c}})
	return nil
}

func sameConnection(a, b Connection) bool {
	if a.ShapeID != b.ShapeID {
		return false
	}
	eq := func(x, y *vector.Vec2) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	}
	return eq(a.Position, b.Position) && eq(a.Absolute, b.Absolute)
}

// ShapeByID implements ShapeLookup. Connectors are never returned.
func (d *Document) ShapeByID(id string) (Shape, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.shapes[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Connector returns the live connector for id.
func (d *Document) Connector(id string) (*Connector, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.connectors[id]
	return c, ok
}

// Shapes returns all shapes bottom to top.
func (d *Document) Shapes() []*RectShape {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*RectShape, 0, len(d.shapeOrder))
	for _, id := range d.shapeOrder {
		out = append(out, d.shapes[id])
	}
	return out
}

// Connectors returns all connectors in insertion order.
func (d *Document) Connectors() []*Connector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Connector, 0, len(d.connectorOrder))
	for _, id := range d.connectorOrder {
		out = append(out, d.connectors[id])
	}
	return out
}

// ConnectorsAttachedTo returns the ids of connectors with an end on shapeID.
func (d *Document) ConnectorsAttachedTo(shapeID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, id := range d.connectorOrder {
		c := d.connectors[id]
		if c.Source.ShapeID == shapeID || c.Target.ShapeID == shapeID {
			out = append(out, id)
		}
	}
	return out
}

// ShapesIn returns the shapes whose bound intersects viewport, topmost first.
func (d *Document) ShapesIn(viewport vector.Bound) []Shape {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Shape
	for i := len(d.shapeOrder) - 1; i >= 0; i-- {
		s := d.shapes[d.shapeOrder[i]]
		if s.Box.Intersects(viewport) {
			out = append(out, s)
		}
	}
	return out
}

// AddGroup registers a group of shapes.
func (d *Document) AddGroup(g *Group) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g.ID == "" {
		return fmt.Errorf("add group: empty id")
	}
	if _, ok := d.groups[g.ID]; ok || d.idTaken(g.ID) {
		return fmt.Errorf("add group %s: %w", g.ID, ErrDuplicateID)
	}
	d.groups[g.ID] = g
	return nil
}

// GroupBound returns the union bound of the group containing shapeID. A
// shape in several groups uses the one with the lowest id.
func (d *Document) GroupBound(shapeID string) (vector.Bound, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.groups))
	for id := range d.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g := d.groups[id]
		member := false
		for _, c := range g.Children {
			if c == shapeID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		var out vector.Bound
		first := true
		for _, c := range g.Children {
			s, ok := d.shapes[c]
			if !ok {
				continue
			}
			if first {
				out, first = s.Box.AABB(), false
			} else {
				out = out.Union(s.Box)
			}
		}
		return out, !first
	}
	return vector.Bound{}, false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
