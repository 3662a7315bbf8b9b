/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	for _, k := range []string{EnvClearance, EnvAlignThreshold, EnvSnapThresholdPx, EnvStorageDriver,
		EnvStorageDSN, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Routing.Clearance != 20 || cfg.Routing.DedupTolerance != 0.02 || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Routing.Clearance = 32
	cfg.Storage.Driver = "pgx"
	cfg.Storage.DSN = "postgres://localhost/conn"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Routing.Clearance != 32 || got.Storage.Driver != "pgx" || got.Storage.DSN != cfg.Storage.DSN {
		t.Fatalf("round trip lost values: %#v", got)
	}
}

func TestEnvOverridesRouting(t *testing.T) {
	isolate(t)
	t.Setenv(EnvClearance, "12.5")
	t.Setenv(EnvSnapThresholdPx, "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Routing.Clearance != 12.5 {
		t.Fatalf("Routing.Clearance = %v, want 12.5", cfg.Routing.Clearance)
	}
	if cfg.Routing.SnapThresholdPx != 8 {
		t.Fatalf("invalid override must be ignored, got %v", cfg.Routing.SnapThresholdPx)
	}
	if env, ok := EnvOverrideFor("routing.clearance"); !ok || env != EnvClearance {
		t.Fatalf("EnvOverrideFor: %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("routing.curve_min_control"); ok {
		t.Fatalf("curve_min_control has no env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/gcn.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/gcn.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsRoutingDefaultsForZero(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Routing.AlignThreshold = 4
	mergeInto(&dst, &src)
	if dst.Routing.AlignThreshold != 4 || dst.Routing.Clearance != 20 {
		t.Fatalf("routing merge: %#v", dst.Routing)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gcn.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gcn.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("routing: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := os.WriteFile(path, []byte("storage:\n  driver: mongo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
