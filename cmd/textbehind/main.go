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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"textbehind/internal/config"
	"textbehind/internal/crash"
	applog "textbehind/internal/log"
	"textbehind/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "textbehind: place text behind the subject of a photo")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  textbehind compose <scene.json> [flags]     Render a scene and export it")
	fmt.Fprintln(w, "      --out <dir> --format png|jpeg|pdf|web|print --preview WxH")
	fmt.Fprintln(w, "      --strategy letterbox|fixed --cutout <file> --segment --quality <1-100>")
	fmt.Fprintln(w, "  textbehind validate <scene.json>            Check a scene document")
	fmt.Fprintln(w, "  textbehind init-scene <image> <scene.json>  Write a starter scene for an image")
	fmt.Fprintln(w, "  textbehind history [n]                      List recent exports")
	fmt.Fprintln(w, "  textbehind fonts                            List available font families")
	fmt.Fprintln(w, "  textbehind config                           Show the effective configuration")
	fmt.Fprintln(w, "  textbehind token set [<token>|-]|clear      Manage the segmentation API token")
	fmt.Fprintln(w, "  textbehind version|-v|--version             Show version")
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	cfgErr error
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	log    *slog.Logger
	crash  *crash.Context
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"compose":    runCompose,
	"validate":   runValidate,
	"init-scene": runInitScene,
	"history":    runHistory,
	"fonts":      runFonts,
	"config":     runConfig,
	"token":      runToken,
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.Logging.Options())

	cc := &crash.Context{Dir: cfg.Export.OutDir}
	a := &app{
		cfg: cfg, cfgErr: cfgErr,
		stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin,
		log:   applog.WithComponent("cli"),
		crash: cc,
	}
	code := func() int {
		defer crash.Recover(cc)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return run(ctx, a, os.Args[1:])
	}()
	_ = applog.Close()
	os.Exit(code)
}

// run dispatches args and returns the process exit code: 0 on success, 1 on
// failure, 2 on a usage error.
func run(ctx context.Context, a *app, args []string) int {
	if len(args) == 0 {
		usage(a.stdout)
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(a.stdout, version.String())
		return 0
	case "help", "--help", "-h":
		usage(a.stdout)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", args[0])
		usage(a.stderr)
		return 2
	}
	if a.cfgErr != nil {
		// A broken config file must not silently change output settings.
		fmt.Fprintln(a.stderr, "Error: config:", a.cfgErr)
		return 1
	}
	a.crash.Command = args[0]
	a.log.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)-1))
	if err := cmd(ctx, a, args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(a.stderr, "Error:", ue.msg)
			usage(a.stderr)
			return 2
		}
		a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
	return 0
}
