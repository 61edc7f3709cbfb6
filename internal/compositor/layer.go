/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/image/font"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"textbehind/internal/domain"
	"textbehind/internal/geometry"
	"textbehind/internal/textlayout"
)

// paintScope is the drawing state of one layer: its placement, transform,
// face and laid out run. It is opened per layer and closed when the layer is
// done, so no state carries over to the next layer.
type paintScope struct {
	layer    domain.TextLayer
	place    geometry.Placement
	xf       geometry.Affine // local text space -> output pixels
	face     font.Face
	run      textlayout.Run
	blur     float64
	fallback bool
}

func (s *paintScope) close() {
	if s.face != nil {
		_ = s.face.Close()
		s.face = nil
	}
}

// withScope opens the layer's scope, runs fn and always closes the scope,
// also when fn fails.
func (c *Compositor) withScope(layer domain.TextLayer, m geometry.Mapper, fn func(*paintScope) error) (fallback bool, err error) {
	s := c.openScope(layer, m)
	defer s.close()
	err = fn(s)
	return s.fallback, err
}

func (c *Compositor) openScope(layer domain.TextLayer, m geometry.Mapper) *paintScope {
	place := m.Map(geometry.Position{Left: layer.Left, Top: layer.Top})
	s := &paintScope{
		layer: layer,
		place: place,
		xf: geometry.Translate(place.X, place.Y).Mul(
			geometry.BuildTransform(layer.Rotation, layer.TiltX, layer.TiltY, c.tilt)),
		blur: math.Max(0, layer.ShadowSize*place.Scale),
	}

	face, _, err := c.provider.Resolve(textlayout.FontSpec{
		Family: layer.FontFamily,
		Weight: layer.FontWeight,
		SizePx: layer.FontSize * place.Scale,
	})
	if err != nil {
		s.fallback = true
		lvl := slog.LevelWarn
		if !errors.Is(err, domain.ErrFontFallback) {
			lvl = slog.LevelError
		}
		c.log.Log(context.Background(), lvl, "font fallback",
			slog.Int("layer", layer.ID),
			slog.String("family", layer.FontFamily),
			slog.Int("weight", layer.FontWeight),
			slog.Any("err", err))
	}
	if face == nil {
		face, _, _ = textlayout.BasicProvider{}.Resolve(textlayout.FontSpec{})
		s.fallback = true
	}
	s.face = face
	s.run = textlayout.Layout(textlayout.FaceMeasurer{Face: face}, layer.Text, layer.LetterSpacing*place.Scale)
	return s
}

func (c *Compositor) paintLayer(dst *image.RGBA, m geometry.Mapper, layer domain.TextLayer) (bool, error) {
	if strings.TrimSpace(layer.Text) == "" || layer.Opacity <= 0 {
		return false, nil
	}
	return c.withScope(layer, m, func(s *paintScope) error {
		s.paint(dst)
		return nil
	})
}

// paint rasterizes the text in its local frame, maps it through the layer
// transform into an output-space buffer, then draws shadow and fill onto
// dst with the layer opacity.
func (s *paintScope) paint(dst *image.RGBA) {
	if len(s.run.Glyphs) == 0 {
		return
	}
	// A tilt near 90 degrees collapses the text to a line.
	if math.Abs(s.xf.Det()) < 1e-9 {
		return
	}
	// Shadow blur reaches about three sigmas; sigma is half the blur size.
	spread := math.Ceil(s.blur * 1.5)

	local := image.NewRGBA(textlayout.Bounds(s.face, s.run, 2))
	textlayout.Draw(local, image.NewUniform(s.layer.Color.NRGBA()), s.face, s.run, 0, 0)

	lb := local.Bounds()
	x0, y0, x1, y1 := s.xf.Bounds(float64(lb.Min.X), float64(lb.Min.Y), float64(lb.Max.X), float64(lb.Max.Y))
	area := image.Rect(
		int(math.Floor(x0-spread)), int(math.Floor(y0-spread)),
		int(math.Ceil(x1+spread)), int(math.Ceil(y1+spread)),
	)
	clip := area.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}

	placed := image.NewRGBA(area)
	xdraw.BiLinear.Transform(placed, aff3(s.xf), local, lb, xdraw.Over, nil)

	alpha := image.NewUniform(opacityColor(s.layer.Opacity))
	if sh := shadow(placed, s.layer.ShadowColor, s.blur); sh != nil {
		draw.DrawMask(dst, clip, sh, clip.Min.Sub(area.Min), alpha, image.Point{}, draw.Over)
	}
	draw.DrawMask(dst, clip, placed, clip.Min, alpha, image.Point{}, draw.Over)
}

// aff3 converts to x/image's row-major source-to-destination matrix.
func aff3(m geometry.Affine) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}
