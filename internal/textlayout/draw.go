/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Draw paints run onto dst with anchor (ax, ay) as the visual center: each
// glyph is centered horizontally on its CenterX and the line is centered
// vertically between ascent and descent (textBaseline "middle").
func Draw(dst draw.Image, src image.Image, face font.Face, run Run, ax, ay float64) {
	if len(run.Glyphs) == 0 {
		return
	}
	met := metricsOf(face)
	baseline := ay + (met.Ascent-met.Descent)/2
	d := &font.Drawer{Dst: dst, Src: src, Face: face}
	for _, g := range run.Glyphs {
		d.Dot = fixed.Point26_6{X: toFixed(ax + g.Left()), Y: toFixed(baseline)}
		d.DrawString(g.Text)
	}
}

// Bounds returns the integer pixel rectangle, relative to the anchor, that a
// run drawn by Draw can touch, padded by pad pixels on each side. It is the
// union of the line box and every glyph's ink box, so overhanging ink such as
// the hook of a "j" or an italic tail stays inside.
func Bounds(face font.Face, run Run, pad float64) image.Rectangle {
	met := metricsOf(face)
	minX, maxX := run.Extent()
	half := (met.Ascent + met.Descent) / 2
	minY, maxY := -half, half
	baseline := (met.Ascent - met.Descent) / 2
	for _, g := range run.Glyphs {
		ink, _ := font.BoundString(face, g.Text)
		if ink.Empty() {
			continue
		}
		minX = math.Min(minX, g.Left()+toPx(ink.Min.X))
		maxX = math.Max(maxX, g.Left()+toPx(ink.Max.X))
		minY = math.Min(minY, baseline+toPx(ink.Min.Y))
		maxY = math.Max(maxY, baseline+toPx(ink.Max.Y))
	}
	return image.Rect(
		int(math.Floor(minX-pad)),
		int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)),
		int(math.Ceil(maxY+pad)),
	)
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
