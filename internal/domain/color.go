/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is a non-premultiplied 8-bit RGBA color.
// In JSON it is written as "#rrggbb" or "#rrggbbaa" and read from any form
// accepted by ParseColor.
type Color struct {
	R, G, B, A uint8
}

// NRGBA converts to the image/color representation.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// WithAlpha returns c with its alpha multiplied by f (clamped to 0..1).
func (c Color) WithAlpha(f float64) Color {
	f = math.Max(0, math.Min(1, f))
	c.A = uint8(math.Round(float64(c.A) * f))
	return c
}

// Hex formats the color as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b), rgba(r,g,b,a)
// with a in 0..1, and the keyword "transparent".
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "transparent":
		return Color{}, nil
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgba(") && strings.HasSuffix(v, ")"):
		return parseFunc(v[5:len(v)-1], 4)
	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		return parseFunc(v[4:len(v)-1], 3)
	}
	return Color{}, fmt.Errorf("invalid color %q", s)
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", "#"+h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", "#"+h, err)
	}
	if len(h) == 6 {
		return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
	}
	return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func parseFunc(args string, want int) (Color, error) {
	parts := strings.Split(args, ",")
	if len(parts) != want {
		return Color{}, fmt.Errorf("expected %d color components, got %d", want, len(parts))
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || n < 0 || n > 255 {
			return Color{}, fmt.Errorf("invalid color component %q", parts[i])
		}
		ch[i] = uint8(math.Round(n))
	}
	c := Color{R: ch[0], G: ch[1], B: ch[2], A: 255}
	if want == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return Color{}, fmt.Errorf("invalid alpha %q", parts[3])
		}
		c.A = uint8(math.Round(a * 255))
	}
	return c, nil
}

func (c Color) MarshalJSON() ([]byte, error) { return json.Marshal(c.Hex()) }

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
