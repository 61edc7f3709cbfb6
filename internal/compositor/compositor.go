/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compositor rasterizes a photo, its text layers and the foreground
// cutout into one image at the photo's native resolution.
//
// Paint order is fixed: source, then every text layer in slice order, then
// the cutout on top so the subject occludes the text.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"time"

	"textbehind/internal/domain"
	"textbehind/internal/geometry"
	applog "textbehind/internal/log"
	"textbehind/internal/textlayout"
)

// Input is everything one composite needs. Layers are copied on entry; the
// caller may keep editing its own slice afterwards.
type Input struct {
	Source  domain.SourceImage
	Cutout  *domain.CutoutImage
	Layers  domain.Layers
	Preview domain.PreviewBox
}

// Result is the finished raster plus the ids of layers that were rendered
// with fallback font metrics.
type Result struct {
	Image     *image.RGBA
	Fallbacks []int
}

// Compositor is stateless between calls and safe to share, provided its
// Provider is.
type Compositor struct {
	provider textlayout.Provider
	tilt     geometry.TiltParams
	strategy geometry.Strategy
	log      *slog.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithProvider sets the font provider. The default resolves the built-in Go
// fonts.
func WithProvider(p textlayout.Provider) Option { return func(c *Compositor) { c.provider = p } }

// WithTilt overrides the tilt calibration.
func WithTilt(p geometry.TiltParams) Option { return func(c *Compositor) { c.tilt = p } }

// WithStrategy selects the position mapping. Letterbox is the default.
func WithStrategy(s geometry.Strategy) Option { return func(c *Compositor) { c.strategy = s } }

// WithLogger sets the logger used for per-layer warnings.
func WithLogger(l *slog.Logger) Option { return func(c *Compositor) { c.log = l } }

func New(opts ...Option) *Compositor {
	c := &Compositor{tilt: geometry.DefaultTilt, strategy: geometry.StrategyLetterbox}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = applog.WithComponent("compositor")
	}
	if c.provider == nil {
		lib, err := textlayout.NewDefaultLibrary()
		if err != nil {
			c.log.Warn("built-in fonts unavailable", slog.Any("err", err))
		}
		c.provider = textlayout.OTProvider{Lib: lib}
	}
	return c
}

// Composite renders in at the source's native resolution.
//
// Missing source, a cutout of different size, or an unmeasured preview box
// fail the whole call before anything is drawn. A layer whose font cannot be
// loaded is drawn with fallback metrics and reported in Result.Fallbacks.
// Cancellation is checked between layers; a cancelled call returns ctx.Err()
// and no image.
func (c *Compositor) Composite(ctx context.Context, in Input) (*Result, error) {
	l := applog.WithOperation(c.log, "composite")
	start := time.Now()

	if in.Source.Image == nil {
		return nil, domain.ErrNoSource
	}
	if err := domain.CheckDimensions(in.Source, in.Cutout); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	size := in.Source.Size()
	mapper, err := geometry.NewMapper(c.strategy, float64(size.X), float64(size.Y), in.Preview)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	layers := in.Layers.Clone()

	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	sb := in.Source.Image.Bounds()
	draw.Draw(out, out.Bounds(), in.Source.Image, sb.Min, draw.Src)

	res := &Result{Image: out}
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fallback, err := c.paintLayer(out, mapper, layer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", layer.ID, err)
		}
		if fallback {
			res.Fallbacks = append(res.Fallbacks, layer.ID)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.Cutout != nil && in.Cutout.Image != nil {
		cb := in.Cutout.Image.Bounds()
		draw.Draw(out, out.Bounds(), in.Cutout.Image, cb.Min, draw.Over)
	}

	l.Debug("composite done",
		slog.Int("w", size.X), slog.Int("h", size.Y),
		slog.Int("layers", len(layers)),
		slog.Bool("cutout", in.Cutout != nil),
		slog.Duration("took", time.Since(start)))
	return res, nil
}
