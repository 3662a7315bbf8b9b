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
	"os"
	"os/signal"

	"goconnector/internal/config"
	"goconnector/internal/crash"
	applog "goconnector/internal/log"
	"goconnector/internal/version"
)

func usage() {
	fmt.Println("goconnector: connector routing for diagram documents")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  goconnector version|-v|--version                  Show version")
	fmt.Println("  goconnector new <doc.json>                        Create an empty document")
	fmt.Println("  goconnector route <doc.json>                      Re-route every connector and save")
	fmt.Println("  goconnector connect <doc.json> <id> <x,y> <x,y> [mode]")
	fmt.Println("                                                    Snap both ends, add a connector and route it")
	fmt.Println("  goconnector export <doc.json> <out.pdf|svg|png>   Render the document")
	fmt.Println("  goconnector batch <doc.json> <outdir> [web|print] Render with an export preset")
	fmt.Println("  goconnector index <doc.json> [dsn]                Rebuild the query index")
	fmt.Println("  goconnector attached <doc.json> <shape>           List connectors attached to a shape")
}

func main() {
	defer crash.Recover(nil)

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		applog.Init(applog.FromEnv())
		cfg = config.Defaults()
	} else {
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
	}
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config ignored, using defaults", slog.Any("err", cfgErr))
	}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	need := func(n int, what string) {
		if len(args) < n {
			fmt.Printf("%s requires %s\n", args[1], what)
			usage()
			os.Exit(2)
		}
	}

	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "new":
		need(3, "<doc.json>")
		err = runNew(cfg, args[2])
	case "route":
		need(3, "<doc.json>")
		err = runRoute(ctx, cfg, args[2])
	case "connect":
		need(6, "<doc.json> <id> <x,y> <x,y>")
		mode := "orthogonal"
		if len(args) > 6 {
			mode = args[6]
		}
		err = runConnect(ctx, cfg, args[2], args[3], args[4], args[5], mode)
	case "export":
		need(4, "<doc.json> and <out>")
		err = runExport(args[2], args[3])
	case "batch":
		need(4, "<doc.json> and <outdir>")
		preset := "web"
		if len(args) > 4 {
			preset = args[4]
		}
		err = runBatch(args[2], args[3], preset)
	case "index":
		need(3, "<doc.json>")
		dsn := ""
		if len(args) > 3 {
			dsn = args[3]
		}
		err = runIndex(ctx, cfg, args[2], dsn)
	case "attached":
		need(4, "<doc.json> and <shape>")
		err = runAttached(ctx, cfg, args[2], args[3])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error(args[1]+" failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
