/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

// WriteSVG renders doc as SVG. The viewBox uses world coordinates, so paths
// are written unchanged.
func WriteSVG(w io.Writer, doc *domain.Document, opt Options) error {
	sc, err := buildScene(doc, opt)
	if err != nil {
		return err
	}
	opt = sc.opt
	b := sc.bound

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"%g %g %g %g\">\n", b.W, b.H, b.X, b.Y, b.W, b.H)
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", b.X, b.Y, b.W, b.H)

	for _, s := range sc.shapes {
		var pts []string
		for _, p := range s.corners {
			pts = append(pts, fmt.Sprintf("%g,%g", p.X, p.Y))
		}
		wf("  <polygon points=\"%s\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			strings.Join(pts, " "), s.fill.Hex(), s.stroke.Hex(), opt.ShapeStroke.Width)
		if s.text != "" {
			wf("  <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" dominant-baseline=\"middle\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"10\" fill=\"%s\">%s</text>\n",
				s.center.X, s.center.Y, s.stroke.Hex(), escText(s.text))
		}
	}
	for _, c := range sc.connectors {
		wf("  <path id=\"%s\" d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\" stroke-linecap=\"%s\"/>\n",
			escAttr(c.id), svgPathData(c.path), c.stroke.Hex(), opt.ConnectorStroke.Width, pdfCap(opt.ConnectorStroke.Cap))
		if c.hasArrow {
			a := c.arrow
			wf("  <polygon points=\"%g,%g %g,%g %g,%g\" fill=\"%s\"/>\n", a[0].X, a[0].Y, a[1].X, a[1].Y, a[2].X, a[2].Y, c.stroke.Hex())
		}
		if c.label != "" {
			wf("  <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"9\" fill=\"%s\">%s</text>\n",
				c.labelPos.X, c.labelPos.Y-3, c.stroke.Hex(), escText(c.label))
		}
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// svgPathData formats p as SVG path data.
func svgPathData(p vector.Path) string {
	var sb strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			fmt.Fprintf(&sb, "M%g %g", d[0], d[1])
		case vector.LineTo:
			fmt.Fprintf(&sb, "L%g %g", d[0], d[1])
		case vector.CubicTo:
			fmt.Fprintf(&sb, "C%g %g %g %g %g %g", d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

func escAttr(s string) string {
	// naive escaping sufficient for ids and font names
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
