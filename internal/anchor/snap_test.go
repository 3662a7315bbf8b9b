/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anchor

import (
	"testing"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

var viewport = vector.B(-1000, -1000, 3000, 3000)

func TestSnapPriority(t *testing.T) {
	d := twoBoxes(t)

	// near the right midpoint of a: anchor wins over outline
	r := Snap(d, vector.V(104, 52), viewport, nil, SnapOptions{})
	if r.Kind != SnapAnchor || r.Connection.ShapeID != "a" || *r.Connection.Position != vector.V(1, 0.5) {
		t.Fatalf("anchor snap: %+v", r)
	}

	// near the right edge but far from the midpoint: outline snap
	r = Snap(d, vector.V(105, 10), viewport, nil, SnapOptions{})
	if r.Kind != SnapBoundary || r.Connection.ShapeID != "a" {
		t.Fatalf("boundary snap: %+v", r)
	}
	if pos := *r.Connection.Position; pos.X != 1 || pos.Y != 0.1 {
		t.Fatalf("boundary relative position: %+v", pos)
	}

	// deep inside: auto connection
	r = Snap(d, vector.V(30, 70), viewport, nil, SnapOptions{})
	if r.Kind != SnapInside || !r.Connection.IsAuto() {
		t.Fatalf("inside snap: %+v", r)
	}

	// nowhere near: free point
	r = Snap(d, vector.V(200, 500), viewport, nil, SnapOptions{})
	if r.Kind != SnapFree || r.Connection.IsAttached() || *r.Connection.Absolute != vector.V(200, 500) {
		t.Fatalf("free snap: %+v", r)
	}
}

func TestSnapBoundaryClampsRelativePosition(t *testing.T) {
	d := twoBoxes(t)
	// outside the top-left corner, within threshold of the corner
	r := Snap(d, vector.V(-3, -3), viewport, nil, SnapOptions{})
	if r.Kind != SnapBoundary {
		t.Fatalf("expected boundary snap, got %v", r.Kind)
	}
	if pos := *r.Connection.Position; pos.X < 0 || pos.Y < 0 || pos.X > 1 || pos.Y > 1 {
		t.Fatalf("relative position not clamped: %+v", pos)
	}
}

func TestSnapThresholdScalesWithZoom(t *testing.T) {
	d := twoBoxes(t)
	// 6 units away: inside 8px at zoom 1, outside 8px at zoom 2 (4 units)
	if r := Snap(d, vector.V(106, 50), viewport, nil, SnapOptions{Zoom: 1}); r.Kind != SnapAnchor {
		t.Fatalf("zoom 1: %v", r.Kind)
	}
	if r := Snap(d, vector.V(106, 50), viewport, nil, SnapOptions{Zoom: 2}); r.Kind != SnapFree {
		t.Fatalf("zoom 2: %v", r.Kind)
	}
}

func TestSnapExcludedAndGroups(t *testing.T) {
	d := twoBoxes(t)
	if r := Snap(d, vector.V(50, 50), viewport, []string{"a"}, SnapOptions{}); r.Kind != SnapFree {
		t.Fatalf("excluded shape matched: %+v", r)
	}
	if err := d.AddGroup(&domain.Group{ID: "g", Children: []string{"a", "b"}}); err != nil {
		t.Fatalf("group: %v", err)
	}
	r := Snap(d, vector.V(50, 50), viewport, nil, SnapOptions{})
	if r.GroupBound == nil || r.GroupBound.W != 400 {
		t.Fatalf("group bound: %+v", r.GroupBound)
	}
	if r.Connection.ShapeID != "a" {
		t.Fatalf("group highlight must not change the connection: %+v", r.Connection)
	}
}
