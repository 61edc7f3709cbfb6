/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"textbehind/internal/domain"
)

// shadow builds a blurred drop shadow (no offset) from the alpha of placed,
// tinted with col. The result has its origin at (0,0) and covers
// placed.Bounds(). It returns nil when no shadow is visible: a transparent
// color or a zero blur, matching canvas shadow rules for zero offsets.
func shadow(placed *image.RGBA, col domain.Color, blur float64) *image.NRGBA {
	if col.A == 0 || blur <= 0 {
		return nil
	}
	b := placed.Bounds()
	mask := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := placed.Pix[placed.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := mask.Pix[mask.PixOffset(0, y):]
		for x := 0; x < b.Dx(); x++ {
			a := uint32(src[4*x+3])
			// keep RGB constant so blurring only spreads alpha
			dst[4*x+0] = col.R
			dst[4*x+1] = col.G
			dst[4*x+2] = col.B
			dst[4*x+3] = uint8((a*uint32(col.A) + 127) / 255)
		}
	}
	return imaging.Blur(mask, blur/2)
}

// opacityColor is the uniform mask used for layer opacity.
func opacityColor(o float64) color.Alpha {
	o = math.Max(0, math.Min(1, o))
	return color.Alpha{A: uint8(math.Round(o * 255))}
}
