/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Horizontal layout of a single text line around an anchor, with optional
// letter spacing. Canvas-style text APIs cannot space letters, so a non-zero
// spacing switches to a glyph-by-glyph path.

import (
	"golang.org/x/image/font"
)

// Measurer reports the advance width of a piece of text in pixels.
type Measurer interface {
	Advance(s string) float64
}

// FaceMeasurer measures with a font.Face.
type FaceMeasurer struct{ Face font.Face }

func (m FaceMeasurer) Advance(s string) float64 {
	return toPx(font.MeasureString(m.Face, s))
}

// Glyph is one drawn unit of a Run. With zero spacing the whole string is a
// single glyph. CenterX is relative to the anchor.
type Glyph struct {
	Text    string
	Advance float64
	CenterX float64
}

// Left is the x where the glyph's pen starts.
func (g Glyph) Left() float64 { return g.CenterX - g.Advance/2 }

// Run is a laid out line centered on x = 0.
type Run struct {
	Glyphs  []Glyph
	Width   float64 // sum of advances plus (n-1)*spacing
	Spacing float64
}

// Extent returns the horizontal span covered by glyph advances. It differs
// from [-Width/2, Width/2] only when negative spacing makes glyphs overlap
// past the ends.
func (r Run) Extent() (minX, maxX float64) {
	if len(r.Glyphs) == 0 {
		return 0, 0
	}
	minX, maxX = r.Glyphs[0].Left(), r.Glyphs[0].Left()+r.Glyphs[0].Advance
	for _, g := range r.Glyphs[1:] {
		minX = min(minX, g.Left())
		maxX = max(maxX, g.Left()+g.Advance)
	}
	return minX, maxX
}

// Layout centers text on x = 0.
//
// With spacing == 0 the string is measured and placed as one unit, exactly
// like a centered fillText. Otherwise it is split into graphemes and
//
//	total = sum(w) + (n-1)*spacing
//	cursor starts at -total/2; each glyph is centered at cursor + w/2;
//	cursor += w + spacing
//
// Negative spacing is allowed and is not clamped, so glyphs may overlap.
func Layout(m Measurer, text string, spacing float64) Run {
	if text == "" {
		return Run{Spacing: spacing}
	}
	if spacing == 0 {
		w := m.Advance(text)
		return Run{Glyphs: []Glyph{{Text: text, Advance: w}}, Width: w}
	}
	return spaced(m, SplitGraphemes(text), spacing)
}

func spaced(m Measurer, chars []string, spacing float64) Run {
	if len(chars) == 0 {
		return Run{Spacing: spacing}
	}
	glyphs := make([]Glyph, len(chars))
	total := 0.0
	for i, c := range chars {
		w := m.Advance(c)
		glyphs[i] = Glyph{Text: c, Advance: w}
		total += w
	}
	total += float64(len(chars)-1) * spacing

	cursor := -total / 2
	for i := range glyphs {
		glyphs[i].CenterX = cursor + glyphs[i].Advance/2
		cursor += glyphs[i].Advance + spacing
	}
	return Run{Glyphs: glyphs, Width: total, Spacing: spacing}
}
