/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"goconnector/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls export of one document into several formats.
//
// Path semantics:
//   - Files are written as <OutDir>/<Base>.<ext>.
//   - Base defaults to "board".
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png, svg; empty means preset defaults
	OutDir  string
	Base    string
	Render  Options // zero fields are filled from the preset
}

// BatchExport writes doc once per requested format and returns the written
// paths in format order.
func BatchExport(doc *domain.Document, opt BatchOptions) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := opt.Base
	if base == "" {
		base = "board"
	}
	render := presetRender(opt.Preset, opt.Render)

	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "pdf", "png", "svg":
		default:
			return out, fmt.Errorf("unknown format: %s", f)
		}
		p := filepath.Join(opt.OutDir, base+"."+f)
		if err := ExportFile(doc, p, render); err != nil {
			return out, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "svg"}
	default:
		return []string{"pdf"}
	}
}

func presetRender(p PresetName, o Options) Options {
	if o.Scale <= 0 && p == PresetWeb {
		// hi-dpi screens
		o.Scale = 2
	}
	if o.Margin <= 0 && p == PresetPrint {
		o.Margin = 36
	}
	return o
}
