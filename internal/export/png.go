/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

// WritePNG rasterizes doc at opt.Scale pixels per unit.
func WritePNG(w io.Writer, doc *domain.Document, opt Options) error {
	sc, err := buildScene(doc, opt)
	if err != nil {
		return err
	}
	opt = sc.opt
	m := sc.toPage(opt.Scale)

	dc := gg.NewContext(pixelSize(sc.bound.W, opt.Scale), pixelSize(sc.bound.H, opt.Scale))
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	// Shapes first, connectors on top
	for _, s := range sc.shapes {
		for i, p := range s.corners {
			q := m.Apply(p)
			if i == 0 {
				dc.MoveTo(q.X, q.Y)
			} else {
				dc.LineTo(q.X, q.Y)
			}
		}
		dc.ClosePath()
		dc.SetColor(toRGBA(s.fill))
		dc.FillPreserve()
		dc.SetColor(toRGBA(s.stroke))
		dc.SetLineWidth(opt.ShapeStroke.Width * opt.Scale)
		dc.Stroke()
		if s.text != "" {
			c := m.Apply(s.center)
			dc.DrawStringAnchored(s.text, c.X, c.Y, 0.5, 0.5)
		}
	}

	dc.SetLineCap(ggCap(opt.ConnectorStroke.Cap))
	for _, c := range sc.connectors {
		p := c.path.Transform(m)
		dc.NewSubPath()
		for _, cmd := range p.Cmds {
			d := cmd.Data
			switch cmd.Op {
			case vector.MoveTo:
				dc.MoveTo(d[0], d[1])
			case vector.LineTo:
				dc.LineTo(d[0], d[1])
			case vector.CubicTo:
				dc.CubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
			case vector.Close:
				dc.ClosePath()
			}
		}
		dc.SetColor(toRGBA(c.stroke))
		dc.SetLineWidth(opt.ConnectorStroke.Width * opt.Scale)
		dc.Stroke()
		if c.hasArrow {
			for i, v := range c.arrow {
				q := m.Apply(v)
				if i == 0 {
					dc.MoveTo(q.X, q.Y)
				} else {
					dc.LineTo(q.X, q.Y)
				}
			}
			dc.ClosePath()
			dc.Fill()
		}
		if c.label != "" {
			lp := m.Apply(c.labelPos)
			dc.DrawStringAnchored(c.label, lp.X, lp.Y, 0.5, 1)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func ggCap(c vector.LineCap) gg.LineCap {
	switch c {
	case vector.CapRound:
		return gg.LineCapRound
	case vector.CapSquare:
		return gg.LineCapSquare
	default:
		return gg.LineCapButt
	}
}

func toRGBA(c vector.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
