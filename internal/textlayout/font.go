/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Font resolution for text layers. All sizes are native pixels; the
// compositor scales display sizes before asking for a face.

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"textbehind/internal/domain"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string  // logical family name
	Weight int     // 100..900
	SizePx float64 // em size in pixels
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps FontSpec to a concrete font.Face.
//
// A Provider always returns a usable face. When the requested font cannot be
// used it returns a fallback face together with an error wrapping
// domain.ErrFontFallback; callers log it and keep rendering.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics, error)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// Every printable ASCII glyph advances 7px regardless of the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics, error) {
	f := basicfont.Face7x13
	return f, metricsOf(f), nil
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to the
// built-in Go Regular face at the requested size, then to Fallback.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero, which makes 1pt == 1px
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics, error) {
	if spec.SizePx <= 0 {
		spec.SizePx = 16
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}

	var cause error
	if p.Lib != nil {
		if f := p.Lib.Find(spec.Family, spec.Weight); f != nil {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: dpi, Hinting: font.HintingNone})
			if err == nil {
				return face, metricsOf(face), nil
			}
			cause = err
		} else {
			cause = fmt.Errorf("family %q not loaded", spec.Family)
		}
	} else {
		cause = fmt.Errorf("no font library")
	}

	face, met := p.fallback(spec, dpi)
	return face, met, fmt.Errorf("%s %d: %v: %w", spec.Family, spec.Weight, cause, domain.ErrFontFallback)
}

func (p OTProvider) fallback(spec FontSpec, dpi float64) (font.Face, Metrics) {
	if f, err := defaultFont(); err == nil {
		if face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: dpi, Hinting: font.HintingNone}); err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	face, met, _ := fb.Resolve(spec)
	return face, met
}

var (
	defaultOnce sync.Once
	defaultOT   *opentype.Font
	defaultErr  error
)

// defaultFont parses the embedded Go Regular font once.
func defaultFont() (*opentype.Font, error) {
	defaultOnce.Do(func() {
		defaultOT, defaultErr = opentype.Parse(goregular.TTF)
	})
	return defaultOT, defaultErr
}

func metricsOf(face font.Face) Metrics {
	m := face.Metrics()
	asc := toPx(m.Ascent)
	desc := toPx(m.Descent)
	return Metrics{
		Ascent:  asc,
		Descent: desc,
		LineGap: toPx(m.Height) - asc - desc,
	}
}

func toPx(v fixed.Int26_6) float64 { return float64(v) / 64 }

func normFamily(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
