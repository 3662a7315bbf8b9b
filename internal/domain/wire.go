/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"

	"goconnector/internal/vector"
)

// Wire format of a path point:
//
//	[[x,y],[tangentX,tangentY],[inX,inY],[outX,outY],pinnedX,pinnedY]
//
// with pin flags encoded as 0 or 1. Floats use the shortest representation
// that parses back to the same value, so the format round-trips exactly.

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (p PathPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([6]any{
		vector.Vec2{X: p.X, Y: p.Y},
		p.Tangent,
		p.In,
		p.Out,
		b2i(p.Pinned.X),
		b2i(p.Pinned.Y),
	})
}

func (p *PathPoint) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("path point: %w", err)
	}
	if len(raw) != 6 {
		return fmt.Errorf("path point: want 6 elements, got %d", len(raw))
	}
	var pos vector.Vec2
	var out PathPoint
	for i, dst := range []*vector.Vec2{&pos, &out.Tangent, &out.In, &out.Out} {
		if err := json.Unmarshal(raw[i], dst); err != nil {
			return fmt.Errorf("path point element %d: %w", i, err)
		}
	}
	var px, py int
	if err := json.Unmarshal(raw[4], &px); err != nil {
		return fmt.Errorf("path point pinnedX: %w", err)
	}
	if err := json.Unmarshal(raw[5], &py); err != nil {
		return fmt.Errorf("path point pinnedY: %w", err)
	}
	if (px != 0 && px != 1) || (py != 0 && py != 1) {
		return fmt.Errorf("path point: pin flags must be 0 or 1, got %d,%d", px, py)
	}
	out.X, out.Y = pos.X, pos.Y
	out.Pinned = PinnedAxis{X: px == 1, Y: py == 1}
	*p = out
	return nil
}

// Serialize encodes a path in the wire format.
func Serialize(path []PathPoint) ([]byte, error) {
	if path == nil {
		path = []PathPoint{}
	}
	return json.Marshal(path)
}

// Deserialize decodes a path produced by Serialize.
func Deserialize(b []byte) ([]PathPoint, error) {
	var path []PathPoint
	if err := json.Unmarshal(b, &path); err != nil {
		return nil, err
	}
	if path == nil {
		path = []PathPoint{}
	}
	return path, nil
}
