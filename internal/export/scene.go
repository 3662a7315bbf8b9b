/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a document with its routed connectors to PDF, SVG
// and PNG.
package export

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"goconnector/internal/connector"
	"goconnector/internal/domain"
	applog "goconnector/internal/log"
	"goconnector/internal/vector"
)

// ErrEmpty is returned when the document has nothing to draw.
var ErrEmpty = errors.New("nothing to export")

// Options controls all exporters. Units are document units; PDF maps one
// unit to one point. Zero values get defaults.
type Options struct {
	Margin          float64
	Scale           float64 // PNG pixels per unit
	ShapeStroke     vector.Stroke
	ShapeFill       vector.Color
	ConnectorStroke vector.Stroke
	ArrowSize       float64
	NoArrows        bool
	NoLabels        bool
}

func (o Options) withDefaults() Options {
	if o.Margin <= 0 {
		o.Margin = 20
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.ShapeStroke.Width == 0 {
		o.ShapeStroke = vector.Stroke{Color: vector.Black, Width: 1, Enabled: true}
	}
	if o.ShapeFill == (vector.Color{}) {
		o.ShapeFill = vector.White
	}
	if o.ConnectorStroke.Width == 0 {
		o.ConnectorStroke = vector.Stroke{Color: vector.Black, Width: 1.5, Cap: vector.CapRound, Enabled: true}
	}
	if o.ArrowSize <= 0 {
		o.ArrowSize = 8
	}
	return o
}

type shapeDraw struct {
	corners [4]vector.Vec2
	fill    vector.Color
	stroke  vector.Color
	text    string
	center  vector.Vec2
}

type connectorDraw struct {
	id       string
	path     vector.Path
	stroke   vector.Color
	arrow    [3]vector.Vec2 // tip, left, right
	hasArrow bool
	label    string
	labelPos vector.Vec2
}

// scene is the format independent draw list in world coordinates.
type scene struct {
	bound      vector.Bound
	opt        Options
	shapes     []shapeDraw
	connectors []connectorDraw
}

func buildScene(doc *domain.Document, opt Options) (scene, error) {
	opt = opt.withDefaults()
	sc := scene{opt: opt}
	first := true
	grow := func(b vector.Bound) {
		if first {
			sc.bound, first = b, false
			return
		}
		sc.bound = sc.bound.Union(b)
	}
	for _, s := range doc.Shapes() {
		sd := shapeDraw{
			corners: s.Box.Points(),
			fill:    colorOr(s.Fill, opt.ShapeFill),
			stroke:  colorOr(s.Stroke, opt.ShapeStroke.Color),
			text:    s.Text,
			center:  s.Box.Center(),
		}
		sc.shapes = append(sc.shapes, sd)
		grow(s.Box.AABB())
	}
	for _, c := range doc.Connectors() {
		if len(c.Path) < 2 {
			continue
		}
		cd := connectorDraw{
			id:     c.ID,
			path:   connector.Outline(c),
			stroke: colorOr(c.Stroke, opt.ConnectorStroke.Color),
		}
		if !opt.NoArrows {
			cd.arrow, cd.hasArrow = arrowHead(cd.path, opt.ArrowSize)
		}
		if c.Label != nil && c.Label.Text != "" && !opt.NoLabels {
			cd.label, cd.labelPos = c.Label.Text, c.Label.Position
		}
		sc.connectors = append(sc.connectors, cd)
		grow(c.Bound)
	}
	if first {
		return sc, ErrEmpty
	}
	sc.bound = sc.bound.ExpandAll(opt.Margin)
	return sc, nil
}

// toPage maps world coordinates onto a canvas with its origin at the
// scene's top-left corner.
func (sc scene) toPage(scale float64) vector.Affine2D {
	return vector.Scale(scale, scale).Mul(vector.Translate(-sc.bound.X, -sc.bound.Y))
}

// arrowHead builds the arrow triangle at the end of p. The direction comes
// from the last control point for curves and the previous point otherwise.
func arrowHead(p vector.Path, size float64) ([3]vector.Vec2, bool) {
	var out [3]vector.Vec2
	n := len(p.Cmds)
	if n < 2 {
		return out, false
	}
	last := p.Cmds[n-1]
	var tip, from vector.Vec2
	switch last.Op {
	case vector.CubicTo:
		tip = vector.V(last.Data[4], last.Data[5])
		from = vector.V(last.Data[2], last.Data[3])
		if from.Equal(tip, vector.Epsilon) {
			from = endOf(p.Cmds[n-2])
		}
	case vector.LineTo:
		tip = vector.V(last.Data[0], last.Data[1])
		from = endOf(p.Cmds[n-2])
	default:
		return out, false
	}
	dir := tip.Sub(from)
	if dir.Len() < vector.Epsilon {
		return out, false
	}
	dir = dir.Normalize()
	base := tip.Sub(dir.Scale(size))
	side := vector.V(-dir.Y, dir.X).Scale(size / 2)
	out = [3]vector.Vec2{tip, base.Add(side), base.Sub(side)}
	return out, true
}

func endOf(c vector.PathCmd) vector.Vec2 {
	if c.Op == vector.CubicTo {
		return vector.V(c.Data[4], c.Data[5])
	}
	return vector.V(c.Data[0], c.Data[1])
}

func colorOr(s string, def vector.Color) vector.Color {
	if strings.TrimSpace(s) == "" {
		return def
	}
	c, err := vector.ParseColor(s)
	if err != nil {
		applog.WithComponent("export").Warn("invalid color, using default", "color", s, "err", err)
		return def
	}
	return c
}

func pixelSize(v, scale float64) int {
	return int(math.Max(1, math.Ceil(v*scale)))
}

// ExportFile writes doc to outPath in the format given by its extension
// (.pdf, .svg or .png).
func ExportFile(doc *domain.Document, outPath string, opt Options) error {
	l := applog.WithOperation(applog.WithComponent("export"), "file").With("path", outPath)
	ext := strings.ToLower(filepath.Ext(outPath))
	var write func(f *os.File) error
	switch ext {
	case ".pdf":
		write = func(f *os.File) error { return WritePDF(f, doc, opt) }
	case ".svg":
		write = func(f *os.File) error { return WriteSVG(f, doc, opt) }
	case ".png":
		write = func(f *os.File) error { return WritePNG(f, doc, opt) }
	default:
		return fmt.Errorf("unknown export format %q", ext)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", ext, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", ext, err)
	}
	l.Info("exported")
	return nil
}
