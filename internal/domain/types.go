/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the compositing packages.
// Layers are plain values: the compositor receives a snapshot and never
// reaches back into whatever editor state produced it.

import "image"

// SourceImage is the decoded base photograph at its native resolution.
// It is treated as immutable once decoded.
type SourceImage struct {
	Image  image.Image
	Format string // decoder name reported by image.Decode (jpeg, png, webp, ...)
}

// Size returns the native pixel dimensions.
func (s SourceImage) Size() image.Point {
	if s.Image == nil {
		return image.Point{}
	}
	return s.Image.Bounds().Size()
}

// CutoutImage is the extracted foreground subject; every pixel outside the
// subject is fully transparent. It must match the source dimensions exactly.
type CutoutImage struct {
	Image image.Image
}

// Size returns the cutout pixel dimensions.
func (c CutoutImage) Size() image.Point {
	if c.Image == nil {
		return image.Point{}
	}
	return c.Image.Bounds().Size()
}

// TextLayer is one independently styled and transformed line of text.
//
// Sizes (FontSize, LetterSpacing, ShadowSize) are display units relative to
// the preview box the layer was placed in. Left/Top are percentage offsets
// from the center of that box; positive Top moves the text up.
type TextLayer struct {
	ID            int     `json:"id"`
	Text          string  `json:"text"`
	FontFamily    string  `json:"fontFamily"`
	FontWeight    int     `json:"fontWeight"` // 100..900
	FontSize      float64 `json:"fontSize"`
	Color         Color   `json:"color"`
	Opacity       float64 `json:"opacity"` // 0..1
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
	Rotation      float64 `json:"rotation,omitempty"` // degrees
	TiltX         float64 `json:"tiltX,omitempty"`    // degrees, [-45,45] by convention
	TiltY         float64 `json:"tiltY,omitempty"`    // degrees, [-45,45] by convention
	Left          float64 `json:"left"`               // percent, [-200,200] by convention
	Top           float64 `json:"top"`                // percent, [-100,100] by convention
	ShadowColor   Color   `json:"shadowColor"`
	ShadowSize    float64 `json:"shadowSize"`
}

// DefaultLayer returns a new layer with the editor defaults.
func DefaultLayer(id int) TextLayer {
	return TextLayer{
		ID:          id,
		Text:        "edit",
		FontFamily:  "Go",
		FontWeight:  700,
		FontSize:    100,
		Color:       Color{R: 255, G: 255, B: 255, A: 255},
		Opacity:     1,
		ShadowColor: Color{A: 204},
		ShadowSize:  4,
	}
}

// PreviewBox is the on-screen rectangle the source was shown in using
// "contain" fitting. It is recomputed for every composite.
type PreviewBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box has not been measured yet.
func (b PreviewBox) Empty() bool { return !(b.Width > 0 && b.Height > 0) }
