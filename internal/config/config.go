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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type RoutingConfig struct {
	Clearance       float64 `yaml:"clearance"`
	DedupTolerance  float64 `yaml:"dedup_tolerance"`
	AlignThreshold  float64 `yaml:"align_threshold"`
	SnapThresholdPx float64 `yaml:"snap_threshold_px"`
	CurveMinControl float64 `yaml:"curve_min_control"`
	AnchorOffset    float64 `yaml:"anchor_offset"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver"` // "sqlite" | "pgx"
	DSN     string `yaml:"dsn"`
	Backups int    `yaml:"backups"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Routing       RoutingConfig `yaml:"routing"`
	Logging       LoggingConfig `yaml:"logging"`
	Storage       StorageConfig `yaml:"storage"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Routing: RoutingConfig{
			Clearance:       20,
			DedupTolerance:  0.02,
			AlignThreshold:  10,
			SnapThresholdPx: 8,
			CurveMinControl: 50,
			AnchorOffset:    10,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Storage: StorageConfig{Driver: "sqlite", DSN: "", Backups: 3},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "GCN_CONFIG"
	EnvClearance       = "GCN_ROUTING_CLEARANCE"
	EnvAlignThreshold  = "GCN_ROUTING_ALIGN_THRESHOLD"
	EnvSnapThresholdPx = "GCN_ROUTING_SNAP_THRESHOLD_PX"
	EnvStorageDriver   = "GCN_STORAGE_DRIVER"
	EnvStorageDSN      = "GCN_STORAGE_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GCN_LOG_LEVEL"
	EnvLogFormat = "GCN_LOG_FORMAT"
	EnvLogSource = "GCN_LOG_SOURCE"
	EnvLogFile   = "GCN_LOG_FILE"
)

// ConfigPath returns the per-user config file path. GCN_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoConnector")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoConnector")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "goconnector")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is reported; a missing one is not.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values the router cannot work with.
func (c AppConfig) Validate() error {
	r := c.Routing
	if r.Clearance < 0 || r.DedupTolerance < 0 || r.AlignThreshold < 0 || r.SnapThresholdPx < 0 ||
		r.CurveMinControl < 0 || r.AnchorOffset < 0 {
		return errors.New("routing values must not be negative")
	}
	switch c.Storage.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// routing: zero keeps the default
	mergeFloat(&dst.Routing.Clearance, src.Routing.Clearance)
	mergeFloat(&dst.Routing.DedupTolerance, src.Routing.DedupTolerance)
	mergeFloat(&dst.Routing.AlignThreshold, src.Routing.AlignThreshold)
	mergeFloat(&dst.Routing.SnapThresholdPx, src.Routing.SnapThresholdPx)
	mergeFloat(&dst.Routing.CurveMinControl, src.Routing.CurveMinControl)
	mergeFloat(&dst.Routing.AnchorOffset, src.Routing.AnchorOffset)
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// storage
	if strings.TrimSpace(src.Storage.Driver) != "" {
		dst.Storage.Driver = strings.ToLower(strings.TrimSpace(src.Storage.Driver))
	}
	if strings.TrimSpace(src.Storage.DSN) != "" {
		dst.Storage.DSN = strings.TrimSpace(src.Storage.DSN)
	}
	if src.Storage.Backups != 0 {
		dst.Storage.Backups = src.Storage.Backups
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func envFloat(key string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envFloat(EnvClearance, &cfg.Routing.Clearance)
	envFloat(EnvAlignThreshold, &cfg.Routing.AlignThreshold)
	envFloat(EnvSnapThresholdPx, &cfg.Routing.SnapThresholdPx)
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"routing.clearance":         EnvClearance,
		"routing.align_threshold":   EnvAlignThreshold,
		"routing.snap_threshold_px": EnvSnapThresholdPx,
		"storage.driver":            EnvStorageDriver,
		"storage.dsn":               EnvStorageDSN,
		"logging.level":             EnvLogLevel,
		"logging.format":            EnvLogFormat,
		"logging.source":            EnvLogSource,
		"logging.file":              EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
