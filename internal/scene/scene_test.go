/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"textbehind/internal/domain"
)

const doc = `{
  "version": 1,
  "source": "photos/beach.jpg",
  "cutout": "photos/beach-cut.png",
  "preview": {"width": 500, "height": 500},
  "layers": [
    {"id": 1, "text": "SUMMER", "fontSize": 120, "color": "#ffcc00", "top": 20},
    {"id": 2, "text": "2024", "opacity": 0.5, "shadowColor": "rgba(0,0,0,0.5)", "shadowSize": 0}
  ]
}`

func TestParseAppliesDefaultsAndResolvesPaths(t *testing.T) {
	s, err := Parse([]byte(doc), "/work")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := s.SourcePath(); got != filepath.Join("/work", "photos", "beach.jpg") {
		t.Fatalf("SourcePath = %q", got)
	}
	if got := s.CutoutPath(); got != filepath.Join("/work", "photos", "beach-cut.png") {
		t.Fatalf("CutoutPath = %q", got)
	}
	if len(s.Layers) != 2 {
		t.Fatalf("layers = %d", len(s.Layers))
	}
	a, b := s.Layers[0], s.Layers[1]
	if a.FontSize != 120 || a.Color != (domain.Color{R: 255, G: 204, A: 255}) || a.Top != 20 {
		t.Fatalf("explicit fields lost: %+v", a)
	}
	if a.Opacity != 1 || a.FontWeight != 700 || a.FontFamily != "Go" {
		t.Fatalf("omitted fields should take defaults: %+v", a)
	}
	if b.Opacity != 0.5 || b.ShadowSize != 0 || b.ShadowColor.A != 128 {
		t.Fatalf("second layer: %+v", b)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"missing source":  {`{"version":1,"layers":[]}`, "source"},
		"bad opacity":     {`{"version":1,"source":"a.png","layers":[{"id":1,"text":"x","opacity":2}]}`, "opacity"},
		"unknown field":   {`{"version":1,"source":"a.png","layers":[{"id":1,"text":"x","blend":"multiply"}]}`, "blend"},
		"duplicate id":    {`{"version":1,"source":"a.png","layers":[{"id":1,"text":"x"},{"id":1,"text":"y"}]}`, "duplicate id"},
		"bad color":       {`{"version":1,"source":"a.png","layers":[{"id":1,"text":"x","color":"#12"}]}`, "color"},
		"zero preview":    {`{"version":1,"source":"a.png","preview":{"width":0,"height":10},"layers":[]}`, "width"},
		"future version":  {`{"version":2,"source":"a.png","layers":[]}`, "version"},
		"tilt over range": {`{"version":1,"source":"a.png","layers":[{"id":1,"text":"x","tiltX":60}]}`, "tiltX"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate([]byte(c.body))
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("error %q does not mention %q", err, c.want)
			}
		})
	}
	if err := Validate([]byte(doc)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "img", "beach.png")
	s := New(img, 1000, 500)
	s.Cutout = filepath.Join(dir, "img", "cut.png")
	s.Layers[0].Text = "behind"
	s.Layers, _ = s.Layers.Add()

	path := filepath.Join(dir, "scene.json")
	if err := Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"source": "img/beach.png"`) {
		t.Fatalf("source should be stored relative to the scene: %s", raw)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SourcePath() != img || got.CutoutPath() != s.Cutout {
		t.Fatalf("paths: %q %q", got.SourcePath(), got.CutoutPath())
	}
	if got.Preview != (domain.PreviewBox{Width: 1000, Height: 500}) || len(got.Layers) != 2 || got.Layers[0].Text != "behind" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSaveLoadKeepsZeroShadow(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "beach.png"), 800, 600)
	s.Layers[0].ShadowSize = 0
	s.Layers[0].LetterSpacing = -3
	s.Layers[0].TiltX = 12

	path := filepath.Join(dir, "scene.json")
	if err := Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Layers[0] != s.Layers[0] {
		t.Fatalf("layer changed on reload:\n got %+v\nwant %+v", got.Layers[0], s.Layers[0])
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version":1`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected error for truncated json")
	}
}
