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
	"path/filepath"
	"testing"

	"goconnector/internal/config"
	"goconnector/internal/domain"
	"goconnector/internal/storage"
	"goconnector/internal/vector"
)

func TestParsePoint(t *testing.T) {
	p, err := parsePoint(" 10.5, -3")
	if err != nil || p != vector.V(10.5, -3) {
		t.Fatalf("got %v %v", p, err)
	}
	for _, bad := range []string{"10", "a,1", "1,b"} {
		if _, err := parsePoint(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestIndexTargetDefaultsToSidecar(t *testing.T) {
	cfg := config.Defaults()
	driver, dsn := indexTarget(cfg, "/tmp/x/board.json", "")
	if driver != storage.DriverSQLite || dsn != storage.IndexPath("/tmp/x/board.json") {
		t.Fatalf("got %s %s", driver, dsn)
	}
	cfg.Storage.DSN = "postgres://cfg"
	if _, dsn := indexTarget(cfg, "/tmp/x/board.json", "postgres://arg"); dsn != "postgres://arg" {
		t.Fatalf("argument must win: %s", dsn)
	}
}

func TestConnectThenRoute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h, err := storage.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, s := range []*domain.RectShape{
		{ShapeID: "a", Box: vector.B(0, 0, 100, 100)},
		{ShapeID: "b", Box: vector.B(300, 0, 100, 100)},
	} {
		if err := h.Doc.AddShape(s); err != nil {
			t.Fatalf("AddShape: %v", err)
		}
	}
	if err := storage.Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg := config.Defaults()
	// cursor inside a, then within snap range of b's left anchor
	if err := runConnect(context.Background(), cfg, path, "c1", "50,50", "296,50", "orthogonal"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	got, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c, ok := got.Doc.Connector("c1")
	if !ok {
		t.Fatalf("connector not saved")
	}
	if c.Source.ShapeID != "a" || c.Target.ShapeID != "b" {
		t.Fatalf("ends not snapped: %+v %+v", c.Source, c.Target)
	}
	abs := c.AbsolutePath()
	if len(abs) < 2 || abs[len(abs)-1].Vec() != vector.V(300, 50) {
		t.Fatalf("unexpected route %v", abs)
	}
	if err := runRoute(context.Background(), cfg, path); err != nil {
		t.Fatalf("route: %v", err)
	}
}
