/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export encodes a finished composite and writes it to disk under a
// timestamped, collision-free name without ever leaving a partial file.
package export

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	PDF  Format = "pdf"
)

// ParseFormat accepts the format names and common file extensions. An empty
// string selects PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "pdf":
		return PDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return "jpg"
	case PDF:
		return "pdf"
	default:
		return "png"
	}
}

// Options tunes the lossy and document encoders.
type Options struct {
	JPEGQuality int    // 1..100, 0 selects DefaultJPEGQuality
	Title       string // PDF document title
}

const DefaultJPEGQuality = 92

// Preset bundles a format with encoder options.
type Preset struct {
	Format  Format
	Options Options
}

// Presets are the named export targets accepted by the CLI.
var Presets = map[string]Preset{
	"lossless": {Format: PNG},
	"web":      {Format: JPEG, Options: Options{JPEGQuality: 85}},
	"print":    {Format: PDF},
}

// LookupPreset resolves a preset name, falling back to ParseFormat so plain
// format names work wherever a preset is accepted.
func LookupPreset(name string) (Preset, error) {
	if p, ok := Presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	f, err := ParseFormat(name)
	if err != nil {
		return Preset{}, err
	}
	return Preset{Format: f}, nil
}
