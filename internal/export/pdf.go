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
	"io"

	"github.com/jung-kurt/gofpdf"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

// WritePDF renders doc as a single page PDF sized to its content.
//
// Coordinates:
// - Page origin is top-left; one document unit is one point.
// - Text uses built-in Helvetica so nothing is embedded.
func WritePDF(w io.Writer, doc *domain.Document, opt Options) error {
	sc, err := buildScene(doc, opt)
	if err != nil {
		return err
	}
	opt = sc.opt
	m := sc.toPage(1)
	size := gofpdf.SizeType{Wd: sc.bound.W, Ht: sc.bound.H}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("goconnector export", false)
	pdf.SetCreator("goconnector", false)
	pdf.AddPageFormat("", size)

	// Shapes
	pdf.SetLineWidth(opt.ShapeStroke.Width)
	for _, s := range sc.shapes {
		pts := make([]gofpdf.PointType, 0, 4)
		for _, p := range s.corners {
			q := m.Apply(p)
			pts = append(pts, gofpdf.PointType{X: q.X, Y: q.Y})
		}
		setFillColor(pdf, s.fill)
		setDrawColor(pdf, s.stroke)
		pdf.Polygon(pts, "FD")
		if s.text != "" {
			pdf.SetFont("Helvetica", "", 10)
			c := m.Apply(s.center)
			pdf.SetTextColor(int(s.stroke.R), int(s.stroke.G), int(s.stroke.B))
			pdf.Text(c.X-pdf.GetStringWidth(s.text)/2, c.Y+3.5, s.text)
		}
	}

	// Connectors on top so their ends stay visible at shape borders
	pdf.SetLineWidth(opt.ConnectorStroke.Width)
	pdf.SetLineCapStyle(pdfCap(opt.ConnectorStroke.Cap))
	for _, c := range sc.connectors {
		setDrawColor(pdf, c.stroke)
		p := c.path.Transform(m)
		for _, cmd := range p.Cmds {
			d := cmd.Data
			switch cmd.Op {
			case vector.MoveTo:
				pdf.MoveTo(d[0], d[1])
			case vector.LineTo:
				pdf.LineTo(d[0], d[1])
			case vector.CubicTo:
				pdf.CurveBezierCubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
			case vector.Close:
				pdf.ClosePath()
			}
		}
		pdf.DrawPath("D")
		if c.hasArrow {
			setFillColor(pdf, c.stroke)
			pts := make([]gofpdf.PointType, 0, 3)
			for _, v := range c.arrow {
				q := m.Apply(v)
				pts = append(pts, gofpdf.PointType{X: q.X, Y: q.Y})
			}
			pdf.Polygon(pts, "F")
		}
		if c.label != "" {
			pdf.SetFont("Helvetica", "", 9)
			lp := m.Apply(c.labelPos)
			pdf.SetTextColor(int(c.stroke.R), int(c.stroke.G), int(c.stroke.B))
			pdf.Text(lp.X-pdf.GetStringWidth(c.label)/2, lp.Y-3, c.label)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pdfCap(c vector.LineCap) string {
	switch c {
	case vector.CapRound:
		return "round"
	case vector.CapSquare:
		return "square"
	default:
		return "butt"
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
