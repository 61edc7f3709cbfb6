/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the process-wide slog logger. Records carry the
// app name and version, a component and optional operation, plus any
// attributes attached to the context with With.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"textbehind/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv reads them from:
//   - TBI_LOG_LEVEL=debug|info|warn|error
//   - TBI_LOG_FORMAT=console|json
//   - TBI_LOG_FILE=<path> (rotated JSON file in addition to stderr)
//   - TBI_LOG_SOURCE=true|false
//   - TBI_LOG_MAX_MB=<n> (rotation size, default 10)
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	MaxSizeMB int

	// Writer replaces stderr for the console handler. Tests use it.
	Writer io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	rotator *lj.Logger
)

// L returns the application logger, initializing it from the environment on
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

// Init replaces the application logger and slog.Default. A previously opened
// log file is closed.
func Init(opts Options) {
	lvl := ParseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		console = newConsoleHandler(out, lvl, opts.AddSource)
	}
	handlers := []slog.Handler{console}

	var rot *lj.Logger
	if f := strings.TrimSpace(opts.File); f != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		rot = &lj.Logger{Filename: f, MaxSize: size, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(rot, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}
	logger := slog.New(contextHandler{next: h}).With(
		slog.String("app", "textbehind"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	old := rotator
	current, rotator = logger, rot
	mu.Unlock()
	slog.SetDefault(logger)
	if old != nil {
		_ = old.Close()
	}
}

// Close flushes and closes the rotating log file, if any.
func Close() error {
	mu.Lock()
	r := rotator
	rotator = nil
	mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Close()
}

// FromEnv builds Options from TBI_LOG_* variables.
func FromEnv() Options {
	size, _ := strconv.Atoi(os.Getenv("TBI_LOG_MAX_MB"))
	return Options{
		Level:     getenv("TBI_LOG_LEVEL", "info"),
		Format:    getenv("TBI_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("TBI_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("TBI_LOG_FILE"),
		MaxSizeMB: size,
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// WithComponent returns the application logger tagged with a component.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
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

type ctxKey struct{}

// With returns a context whose records logged through the application logger
// carry attrs, e.g. the scene being rendered.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	return a
}
