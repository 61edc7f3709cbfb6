/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene reads and writes scene documents: a JSON file naming the
// photo, its cutout, the preview box and the text layers.
package scene

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"textbehind/internal/domain"
)

// CurrentVersion is the document version written by Save.
const CurrentVersion = 1

//go:embed schema.json
var schemaJSON []byte

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("scene schema: %v", err))
	}
	return s
}

// Scene is a decoded scene document. Source and Cutout are stored as written;
// use SourcePath and CutoutPath for paths usable on disk.
type Scene struct {
	Version int               `json:"version"`
	Source  string            `json:"source"`
	Cutout  string            `json:"cutout,omitempty"`
	Preview domain.PreviewBox `json:"preview"`
	Layers  domain.Layers     `json:"layers"`

	dir string
}

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid scene: " + strings.Join(e.Problems, "; ")
}

// New returns a scene for source with one default layer and a preview box
// equal to the image size.
func New(source string, width, height int) *Scene {
	return &Scene{
		Version: CurrentVersion,
		Source:  source,
		Preview: domain.PreviewBox{Width: float64(width), Height: float64(height)},
		Layers:  domain.Layers{domain.DefaultLayer(1)},
	}
}

// Validate checks raw JSON against the scene schema and the rules the
// schema cannot express.
func Validate(data []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate scene: %w", err)
	}
	var problems []string
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	if len(problems) == 0 {
		var doc struct {
			Layers []struct {
				ID          int     `json:"id"`
				Color       *string `json:"color"`
				ShadowColor *string `json:"shadowColor"`
			} `json:"layers"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("validate scene: %w", err)
		}
		seen := map[int]bool{}
		for i, l := range doc.Layers {
			if seen[l.ID] {
				problems = append(problems, fmt.Sprintf("layers.%d: duplicate id %d", i, l.ID))
			}
			seen[l.ID] = true
			for name, c := range map[string]*string{"color": l.Color, "shadowColor": l.ShadowColor} {
				if c == nil {
					continue
				}
				if _, err := domain.ParseColor(*c); err != nil {
					problems = append(problems, fmt.Sprintf("layers.%d.%s: %v", i, name, err))
				}
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Parse validates data and decodes it. Layer fields a document leaves out
// take the editor defaults. Relative paths are resolved against dir.
func Parse(data []byte, dir string) (*Scene, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var raw struct {
		Version int               `json:"version"`
		Source  string            `json:"source"`
		Cutout  string            `json:"cutout"`
		Preview domain.PreviewBox `json:"preview"`
		Layers  []json.RawMessage `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	s := &Scene{Version: raw.Version, Source: raw.Source, Cutout: raw.Cutout, Preview: raw.Preview, dir: dir}
	for i, m := range raw.Layers {
		l := domain.DefaultLayer(0)
		if err := json.Unmarshal(m, &l); err != nil {
			return nil, fmt.Errorf("decode layer %d: %w", i, err)
		}
		s.Layers = append(s.Layers, l)
	}
	return s, nil
}

// Load reads and parses the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path. Image paths below the scene's directory are stored
// relative to it.
func Save(path string, s *Scene) error {
	dir := filepath.Dir(path)
	out := *s
	out.Version = CurrentVersion
	out.Source = relTo(dir, s.SourcePath())
	if s.Cutout != "" {
		out.Cutout = relTo(dir, s.CutoutPath())
	}
	if out.Layers == nil {
		out.Layers = domain.Layers{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure scene dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	s.dir = dir
	return nil
}

// SourcePath returns the source image path usable from the working directory.
func (s *Scene) SourcePath() string { return s.resolve(s.Source) }

// CutoutPath is SourcePath for the cutout; empty when none is set.
func (s *Scene) CutoutPath() string {
	if s.Cutout == "" {
		return ""
	}
	return s.resolve(s.Cutout)
}

func (s *Scene) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, filepath.FromSlash(p))
}

func relTo(dir, p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(absDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}
