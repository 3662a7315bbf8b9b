/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPath_BoundsAndTransform(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(0, 10)
	p.Close()

	b := p.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("unexpected bounds: %+v", b)
	}

	moved := p.Transform(Translate(5, 5))
	bb := moved.Bounds()
	if bb.X != 5 || bb.Y != 5 || bb.W != 10 || bb.H != 10 {
		t.Fatalf("unexpected transformed bounds: %+v", bb)
	}
}

func TestPath_CubicBoundsAreTight(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.CubicTo(0, 100, 100, 100, 100, 0)
	b := p.Bounds()
	if b.H >= 100 {
		t.Fatalf("expected bounds tighter than the control hull, got %+v", b)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f80")
	if err != nil || c != (Color{0xff, 0x88, 0x00, 255}) {
		t.Fatalf("parse: %v %+v", err, c)
	}
	if c.Hex() != "#ff8800" {
		t.Fatalf("hex: %s", c.Hex())
	}
	if _, err := ParseColor("nope"); err == nil {
		t.Fatalf("expected error")
	}
}
