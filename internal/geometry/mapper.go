/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"fmt"
	"strings"

	"textbehind/internal/domain"
)

// Position is a layer position in percent offsets from the box center.
// Positive Top moves up.
type Position struct {
	Left, Top float64
}

// Placement is a layer anchor in native image pixels plus the uniform factor
// that converts display units (font size, letter spacing, shadow blur) into
// native pixels.
type Placement struct {
	X, Y  float64
	Scale float64
}

// Mapper converts percentage positions into native image placements.
type Mapper interface {
	Map(Position) Placement
}

// Strategy selects how percentage positions are interpreted at export time.
type Strategy string

const (
	// StrategyLetterbox resolves positions against the preview box, removes the
	// preview's letterbox offset, then scales into native pixels.
	StrategyLetterbox Strategy = "letterbox"
	// StrategyFixed maps percentages straight onto the native image and only
	// uses the preview for the size scale.
	StrategyFixed Strategy = "fixed"
)

// ParseStrategy accepts "letterbox" (or "b") and "fixed" (or "a").
// The empty string selects the letterbox strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "letterbox", "b":
		return StrategyLetterbox, nil
	case "fixed", "a":
		return StrategyFixed, nil
	}
	return "", fmt.Errorf("unknown position strategy %q", s)
}

// NewMapper builds the mapper for the given strategy. It fails with
// domain.ErrDegenerateBox while the preview box has no size.
func NewMapper(s Strategy, nativeW, nativeH float64, box domain.PreviewBox) (Mapper, error) {
	switch s {
	case StrategyFixed:
		m, err := NewFixedBoxMapper(nativeW, nativeH, box)
		if err != nil {
			return nil, err
		}
		return m, nil
	case StrategyLetterbox, "":
		m, err := NewLetterboxMapper(nativeW, nativeH, box)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown position strategy %q", s)
}

// LetterboxMapper is the general mapping. Percentages are relative to the
// preview box, so the box's letterbox offset must be removed before scaling
// into the image. Required whenever box and image aspect ratios differ.
type LetterboxMapper struct {
	box     domain.PreviewBox
	fit     Fit
	toImage float64
}

func NewLetterboxMapper(nativeW, nativeH float64, box domain.PreviewBox) (*LetterboxMapper, error) {
	fit, err := ContainRect(nativeW, nativeH, box.Width, box.Height)
	if err != nil {
		return nil, err
	}
	if fit.DrawW == 0 {
		return nil, fmt.Errorf("preview draw width is zero: %w", domain.ErrDegenerateBox)
	}
	return &LetterboxMapper{box: box, fit: fit, toImage: nativeW / fit.DrawW}, nil
}

// Fit returns the preview contain-fit the mapper was built from.
func (m *LetterboxMapper) Fit() Fit { return m.fit }

func (m *LetterboxMapper) Map(p Position) Placement {
	px, py := PreviewPoint(m.box, p)
	return Placement{
		X:     (px - m.fit.OffsetX) * m.toImage,
		Y:     (py - m.fit.OffsetY) * m.toImage,
		Scale: m.toImage,
	}
}

// FixedBoxMapper treats the editor's size attributes as preview pixels and
// maps percentages directly onto the native image:
// x = W*(left+50)/100, y = H*(50-top)/100.
type FixedBoxMapper struct {
	w, h  float64
	scale float64
}

func NewFixedBoxMapper(nativeW, nativeH float64, box domain.PreviewBox) (*FixedBoxMapper, error) {
	fit, err := ContainRect(nativeW, nativeH, box.Width, box.Height)
	if err != nil {
		return nil, err
	}
	if fit.DrawW == 0 {
		return nil, fmt.Errorf("preview draw width is zero: %w", domain.ErrDegenerateBox)
	}
	return &FixedBoxMapper{w: nativeW, h: nativeH, scale: nativeW / fit.DrawW}, nil
}

func (m *FixedBoxMapper) Map(p Position) Placement {
	return Placement{
		X:     m.w * (p.Left + 50) / 100,
		Y:     m.h * (50 - p.Top) / 100,
		Scale: m.scale,
	}
}

// PreviewPoint returns where a position sits in preview box pixels.
func PreviewPoint(box domain.PreviewBox, p Position) (x, y float64) {
	return box.Width * (p.Left + 50) / 100, box.Height * (50 - p.Top) / 100
}
