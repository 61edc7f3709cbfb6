/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"textbehind/internal/compositor"
	"textbehind/internal/config"
	"textbehind/internal/domain"
	"textbehind/internal/export"
	"textbehind/internal/geometry"
	applog "textbehind/internal/log"
	"textbehind/internal/scene"
	"textbehind/internal/segment"
	"textbehind/internal/session"
	"textbehind/internal/storage"
	"textbehind/internal/textlayout"
)

type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

func usagef(format string, args ...any) error { return usageError{msg: fmt.Sprintf(format, args...)} }

// parseFlags parses fs and returns the positional arguments. Flags may
// follow positionals.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usagef("%s: %v", fs.Name(), err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// parseSize parses "WxH".
func parseSize(s string) (domain.PreviewBox, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return domain.PreviewBox{}, fmt.Errorf("size %q: want WxH", s)
	}
	fw, err1 := strconv.ParseFloat(w, 64)
	fh, err2 := strconv.ParseFloat(h, 64)
	if err1 != nil || err2 != nil || fw <= 0 || fh <= 0 {
		return domain.PreviewBox{}, fmt.Errorf("size %q: want positive WxH", s)
	}
	return domain.PreviewBox{Width: fw, Height: fh}, nil
}

func (a *app) fontLibrary() (*textlayout.FontLibrary, error) {
	lib, err := textlayout.NewDefaultLibrary()
	if err != nil {
		return nil, err
	}
	for _, dir := range a.cfg.Render.FontDirs {
		n, skipped, err := lib.LoadDir(dir)
		if err != nil {
			a.log.Warn("font dir not loaded", slog.String("dir", dir), slog.Any("err", err))
			continue
		}
		a.log.Debug("fonts loaded", slog.String("dir", dir), slog.Int("fonts", n), slog.Int("skipped", skipped))
	}
	return lib, nil
}

func (a *app) openHistory(ctx context.Context) (*storage.History, error) {
	h := a.cfg.History
	return storage.Open(ctx, h.Driver, h.DSN)
}

func runCompose(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	out := fs.String("out", a.cfg.Export.OutDir, "output directory")
	format := fs.String("format", a.cfg.Export.Format, "output format or preset")
	preview := fs.String("preview", "", "preview box WxH, overrides the scene")
	strategy := fs.String("strategy", a.cfg.Render.Strategy, "position mapping")
	cutout := fs.String("cutout", "", "cutout image, overrides the scene")
	useSegment := fs.Bool("segment", false, "compute the cutout with the segmentation service")
	quality := fs.Int("quality", a.cfg.Export.JPEGQuality, "JPEG quality")
	prefix := fs.String("prefix", a.cfg.Export.Prefix, "output file name prefix")
	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("compose requires exactly one <scene.json>")
	}

	sc, err := scene.Load(pos[0])
	if err != nil {
		return err
	}
	a.crash.Scene = pos[0]
	a.crash.Dir = *out
	ctx = applog.With(ctx, slog.String("scene", pos[0]))

	box := sc.Preview
	if *preview != "" {
		if box, err = parseSize(*preview); err != nil {
			return usagef("%v", err)
		}
	}
	strat, err := geometry.ParseStrategy(*strategy)
	if err != nil {
		return usagef("%v", err)
	}
	preset, err := export.LookupPreset(*format)
	if err != nil {
		return usagef("%v", err)
	}
	if preset.Options.JPEGQuality == 0 {
		preset.Options.JPEGQuality = *quality
	}
	preset.Options.Title = strings.TrimSuffix(filepath.Base(pos[0]), filepath.Ext(pos[0]))

	cutPath := sc.CutoutPath()
	if *cutout != "" {
		cutPath = *cutout
	}
	if *useSegment {
		cutPath = ""
	}
	src, cut, err := compositor.LoadFiles(ctx, sc.SourcePath(), cutPath)
	if err != nil {
		return err
	}
	if box.Empty() {
		// Without a recorded preview the layers were placed on the image itself.
		sz := src.Size()
		box = domain.PreviewBox{Width: float64(sz.X), Height: float64(sz.Y)}
	}

	lib, err := a.fontLibrary()
	if err != nil {
		return err
	}
	comp := compositor.New(
		compositor.WithProvider(textlayout.OTProvider{Lib: lib}),
		compositor.WithTilt(a.cfg.Render.Tilt()),
		compositor.WithStrategy(strat),
	)

	var opts []session.Option
	if cut == nil && (*useSegment || a.cfg.Segment.URL != "") {
		tok, err := config.Token()
		if err != nil {
			a.log.Warn("segmentation token unavailable", slog.Any("err", err))
		}
		seg, err := segment.NewHTTPSegmenter(a.cfg.Segment.URL, tok, a.cfg.Segment.Timeout())
		if err != nil {
			return err
		}
		opts = append(opts, session.WithSegmenter(seg))
	}
	if a.cfg.History.Enabled {
		h, err := a.openHistory(ctx)
		if err != nil {
			a.log.Warn("export history disabled", slog.Any("err", err))
		} else {
			defer h.Close()
			opts = append(opts, session.WithRecorder(h))
		}
	}

	layers := sc.Layers.Clone()
	for i := range layers {
		if strings.TrimSpace(layers[i].FontFamily) == "" {
			layers[i].FontFamily = a.cfg.Render.DefaultFamily
		}
	}

	sess := session.New(comp, session.Output{Dir: *out, Prefix: *prefix, Preset: preset}, opts...)
	defer sess.Close()
	if _, err := sess.Select(ctx, sc.SourcePath(), src, cut); err != nil {
		return err
	}
	start := time.Now()
	path, err := sess.Export(ctx, layers, box)
	if err != nil {
		return err
	}
	a.log.Info("compose done", slog.String("path", path), slog.Duration("took", time.Since(start)))
	fmt.Fprintln(a.stdout, path)
	return nil
}

func runValidate(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("validate requires <scene.json>")
	}
	sc, err := scene.Load(args[0])
	if err != nil {
		var ve *scene.ValidationError
		if errors.As(err, &ve) {
			for _, p := range ve.Problems {
				fmt.Fprintln(a.stdout, "  -", p)
			}
		}
		return err
	}
	for _, p := range []string{sc.SourcePath(), sc.CutoutPath()} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("referenced image: %w", err)
		}
	}
	fmt.Fprintf(a.stdout, "%s: ok (%d layers)\n", args[0], len(sc.Layers))
	return nil
}

func runInitScene(_ context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usagef("init-scene requires <image> and <scene.json>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	// the compositor package registers the decoders
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", args[0], domain.ErrDecode, err)
	}
	if _, err := os.Stat(args[1]); err == nil {
		return fmt.Errorf("%s already exists", args[1])
	}
	sc := scene.New(args[0], cfg.Width, cfg.Height)
	sc.Layers[0].FontFamily = a.cfg.Render.DefaultFamily
	if err := scene.Save(args[1], sc); err != nil {
		return err
	}
	a.log.Info("scene created", slog.String("path", args[1]), slog.String("format", format))
	fmt.Fprintf(a.stdout, "Created %s for %dx%d %s image\n", args[1], cfg.Width, cfg.Height, format)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usagef("history count must be a positive number")
		}
		n = v
	}
	h, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer h.Close()
	entries, err := h.Recent(ctx, n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No exports recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFORMAT\tSIZE\tLAYERS\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Format, e.Width, e.Height, e.Layers, e.Path)
	}
	return tw.Flush()
}

func runFonts(_ context.Context, a *app, _ []string) error {
	lib, err := a.fontLibrary()
	if err != nil {
		return err
	}
	for _, f := range lib.Families() {
		fmt.Fprintln(a.stdout, f)
	}
	return nil
}

func runConfig(_ context.Context, a *app, _ []string) error {
	p, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "# %s\n", p)
	b, err := yaml.Marshal(a.cfg)
	if err != nil {
		return err
	}
	if _, err := a.stdout.Write(b); err != nil {
		return err
	}
	for _, key := range []string{
		"render.strategy", "render.skew_k", "render.perspective", "render.default_family", "render.font_dirs",
		"export.format", "export.jpeg_quality", "export.out_dir", "export.prefix",
		"segment.url", "segment.timeout_ms", "history.enabled", "history.driver", "history.dsn",
		"logging.level", "logging.format", "logging.source", "logging.file",
	} {
		if env, ok := config.EnvOverrideFor(key); ok {
			fmt.Fprintf(a.stdout, "# %s overridden by %s\n", key, env)
		}
	}
	return nil
}

func runToken(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usagef("token requires set or clear")
	}
	switch args[0] {
	case "set":
		var tok string
		if len(args) > 1 && args[1] != "-" {
			tok = args[1]
		} else {
			line, err := bufio.NewReader(a.stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			tok = strings.TrimSpace(line)
		}
		if err := config.SetToken(tok); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Token stored in the OS keyring.")
	case "clear":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Token removed.")
	default:
		return usagef("unknown token action %q", args[0])
	}
	return nil
}
