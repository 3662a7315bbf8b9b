/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides the slog setup shared by the routing engine, storage,
// export and the CLI. Records carry a component attribute, an optional
// operation, and the connector id and flush sequence found on the context.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"goconnector/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv reads:
//   - GCN_LOG_LEVEL=debug|info|warn|error
//   - GCN_LOG_FORMAT=console|json
//   - GCN_LOG_FILE=<path> (JSON lines, rotated)
//   - GCN_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	// MaxSizeMB and MaxBackups tune rotation; zero keeps 10 MB and 3 backups.
	MaxSizeMB  int
	MaxBackups int
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the process logger and slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	ho := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var sinks []slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		sinks = append(sinks, slog.NewJSONHandler(os.Stderr, ho))
	default:
		sinks = append(sinks, &consoleHandler{opts: consoleOpts{Level: lvl, AddSource: opts.AddSource}, w: os.Stderr, mu: &sync.Mutex{}})
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		sinks = append(sinks, slog.NewJSONHandler(rotating(f, opts.MaxSizeMB, opts.MaxBackups), ho))
	}

	logger := slog.New(withContextAttrs(fanout(sinks))).With(
		slog.String("app", "goconnector"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	current = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

func rotating(path string, sizeMB, backups int) *lj.Logger {
	if sizeMB <= 0 {
		sizeMB = 10
	}
	if backups <= 0 {
		backups = 3
	}
	return &lj.Logger{Filename: path, MaxSize: sizeMB, MaxBackups: backups, MaxAge: 28, Compress: true}
}

// FromEnv builds Options from GCN_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("GCN_LOG_LEVEL", "info"),
		Format:    getenv("GCN_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("GCN_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("GCN_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type (
	connectorKey struct{}
	flushKey     struct{}
)

// ContextWithConnector tags ctx with a connector id. Records logged with a
// context carrying it get a "connector" attribute.
func ContextWithConnector(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectorKey{}, id)
}

// ConnectorFromContext returns the connector id stored by ContextWithConnector.
func ConnectorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(connectorKey{}).(string)
	return id, ok && id != ""
}

// ContextWithFlush tags ctx with a scheduler flush sequence number, logged
// as "flush".
func ContextWithFlush(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, flushKey{}, seq)
}

// FlushFromContext returns the sequence stored by ContextWithFlush.
func FlushFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	seq, ok := ctx.Value(flushKey{}).(uint64)
	return seq, ok
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
