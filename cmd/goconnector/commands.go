/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"goconnector/internal/anchor"
	"goconnector/internal/config"
	"goconnector/internal/connector"
	"goconnector/internal/crash"
	"goconnector/internal/domain"
	"goconnector/internal/export"
	applog "goconnector/internal/log"
	"goconnector/internal/ortho"
	"goconnector/internal/scheduler"
	"goconnector/internal/storage"
	"goconnector/internal/vector"
)

func generatorOptions(cfg config.AppConfig) connector.Options {
	r := cfg.Routing
	return connector.Options{
		Router:          ortho.Options{Clearance: r.Clearance, DedupTolerance: r.DedupTolerance},
		AlignThreshold:  r.AlignThreshold,
		CurveMinControl: r.CurveMinControl,
		AnchorOffset:    r.AnchorOffset,
	}
}

func openDoc(cfg config.AppConfig, path string) (*storage.DocHandle, error) {
	abs, _ := filepath.Abs(path)
	h, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	h.Backups = cfg.Storage.Backups
	return h, nil
}

func printReport(rep scheduler.FlushReport) {
	fmt.Printf("Recomputed: %d\n", len(rep.Recomputed))
	if len(rep.Unroutable) > 0 {
		fmt.Printf("Unroutable: %s\n", strings.Join(rep.Unroutable, ", "))
	}
	for id, err := range rep.Failed {
		fmt.Printf("Failed %s: %v\n", id, err)
	}
}

func runNew(cfg config.AppConfig, path string) error {
	abs, _ := filepath.Abs(path)
	h, err := storage.Create(abs)
	if err != nil {
		return err
	}
	h.Backups = cfg.Storage.Backups
	fmt.Println("Created document at", abs)
	return nil
}

func runRoute(ctx context.Context, cfg config.AppConfig, path string) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "route")
	h, err := openDoc(cfg, path)
	if err != nil {
		return err
	}
	defer crash.Recover(h)

	gen := connector.New(h.Doc, generatorOptions(cfg))
	sched := scheduler.New(h.Doc, gen)
	for _, c := range h.Doc.Connectors() {
		sched.Enqueue(c.ID)
	}
	rep, err := sched.Flush(ctx)
	if err != nil {
		return err
	}
	printReport(rep)
	if rep.Empty() {
		l.Info("nothing to route", slog.String("path", h.Path))
		return nil
	}
	return storage.Save(h)
}

// parsePoint reads "x,y".
func parsePoint(s string) (vector.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return vector.Vec2{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return vector.Vec2{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return vector.Vec2{}, fmt.Errorf("point %q: %w", s, err)
	}
	return vector.V(x, y), nil
}

func runConnect(ctx context.Context, cfg config.AppConfig, path, id, from, to, modeName string) error {
	mode, err := domain.ParseMode(modeName)
	if err != nil {
		return err
	}
	a, err := parsePoint(from)
	if err != nil {
		return err
	}
	b, err := parsePoint(to)
	if err != nil {
		return err
	}
	h, err := openDoc(cfg, path)
	if err != nil {
		return err
	}
	defer crash.Recover(h)

	opts := anchor.SnapOptions{Threshold: cfg.Routing.SnapThresholdPx, Offset: cfg.Routing.AnchorOffset}
	snap := func(p vector.Vec2, excluded []string) anchor.SnapResult {
		r := opts.Threshold
		if r <= 0 {
			r = 8
		}
		return anchor.Snap(h.Doc, p, vector.B(p.X-r, p.Y-r, 2*r, 2*r), excluded, opts)
	}
	src := snap(a, nil)
	var excl []string
	if src.Connection.ShapeID != "" {
		// no self loops
		excl = []string{src.Connection.ShapeID}
	}
	dst := snap(b, excl)
	fmt.Printf("Source: %s, Target: %s\n", src.Kind, dst.Kind)

	gen := connector.New(h.Doc, generatorOptions(cfg))
	sched := scheduler.New(h.Doc, gen)
	sched.Attach(h.Doc)
	if err := h.Doc.AddConnector(domain.NewConnector(id, src.Connection, dst.Connection, mode)); err != nil {
		return err
	}
	rep, err := sched.Flush(ctx)
	if err != nil {
		return err
	}
	printReport(rep)
	return storage.Save(h)
}

func runExport(path, out string) error {
	h, err := storage.Open(path)
	if err != nil {
		return err
	}
	if err := export.ExportFile(h.Doc, out, export.Options{}); err != nil {
		return err
	}
	fmt.Println("Exported", out)
	return nil
}

func runBatch(path, outDir, preset string) error {
	h, err := storage.Open(path)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	paths, err := export.BatchExport(h.Doc, export.BatchOptions{
		Preset: export.PresetName(preset),
		OutDir: outDir,
		Base:   base,
	})
	for _, p := range paths {
		fmt.Println("Exported", p)
	}
	return err
}

func indexTarget(cfg config.AppConfig, docPath, dsn string) (string, string) {
	driver := cfg.Storage.Driver
	if dsn == "" {
		dsn = cfg.Storage.DSN
	}
	if dsn == "" && driver == storage.DriverSQLite {
		dsn = storage.IndexPath(docPath)
	}
	return driver, dsn
}

func openIndex(ctx context.Context, cfg config.AppConfig, h *storage.DocHandle, dsn string) (*storage.Index, error) {
	driver, dsn := indexTarget(cfg, h.Path, dsn)
	if driver == storage.DriverSQLite {
		rebuilt, err := storage.DetectAndRebuildIndex(ctx, dsn, h.Doc)
		if err != nil {
			return nil, err
		}
		if rebuilt {
			fmt.Println("Index was damaged and has been rebuilt")
		}
	}
	ix, err := storage.OpenIndex(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := ix.WriteDocument(ctx, h.Doc); err != nil {
		_ = ix.Close()
		return nil, err
	}
	return ix, nil
}

func runIndex(ctx context.Context, cfg config.AppConfig, path, dsn string) error {
	h, err := openDoc(cfg, path)
	if err != nil {
		return err
	}
	ix, err := openIndex(ctx, cfg, h, dsn)
	if err != nil {
		return err
	}
	defer ix.Close()
	shapes, connectors, err := ix.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d shapes and %d connectors\n", shapes, connectors)
	return nil
}

func runAttached(ctx context.Context, cfg config.AppConfig, path, shapeID string) error {
	h, err := openDoc(cfg, path)
	if err != nil {
		return err
	}
	ix, err := openIndex(ctx, cfg, h, "")
	if err != nil {
		return err
	}
	defer ix.Close()
	ids, err := ix.ConnectorsForShape(ctx, shapeID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
