/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Path commands consumed by the exporters.

type PathOp uint8

const (
	MoveTo  PathOp = iota
	LineTo         // (x, y)
	CubicTo        // (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Bounds returns the tight axis-aligned bound of the path. Cubic segments
// contribute their exact extrema, not their control points.
func (p *Path) Bounds() Bound {
	var pts []Vec2
	cur := Vec2{}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			cur = Vec2{c.Data[0], c.Data[1]}
			pts = append(pts, cur)
		case CubicTo:
			cb := Cubic{cur, Vec2{c.Data[0], c.Data[1]}, Vec2{c.Data[2], c.Data[3]}, Vec2{c.Data[4], c.Data[5]}}
			b := cb.Bounds()
			pts = append(pts, b.Min(), b.Max())
			cur = cb.P3
		}
	}
	return BoundFromPoints(pts)
}

// Transform returns a copy of the path with m applied to every coordinate.
func (p *Path) Transform(m Affine2D) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		out.Cmds[i] = c
		n := 0
		switch c.Op {
		case MoveTo, LineTo:
			n = 1
		case CubicTo:
			n = 3
		}
		for k := 0; k < n; k++ {
			q := m.Apply(Vec2{c.Data[2*k], c.Data[2*k+1]})
			out.Cmds[i].Data[2*k] = q.X
			out.Cmds[i].Data[2*k+1] = q.Y
		}
	}
	return out
}
