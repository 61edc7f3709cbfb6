/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FontLibrary stores loaded OpenType fonts mapped by family and weight.
// Italic and variable instances are not modelled: layers only carry a
// family and a weight. It is safe for concurrent use.
type FontLibrary struct {
	mu      sync.RWMutex
	fonts   map[fontKey]*opentype.Font
	names   map[string]string // normalized family -> display name
	aliases map[string]string
}

type fontKey struct {
	family string
	weight int
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{
		fonts:   make(map[fontKey]*opentype.Font),
		names:   make(map[string]string),
		aliases: make(map[string]string),
	}
}

// NewDefaultLibrary returns a library preloaded with the Go fonts. The family
// "Go" doubles as the generic sans-serif family.
func NewDefaultLibrary() (*FontLibrary, error) {
	fl := NewFontLibrary()
	builtins := []struct {
		family string
		weight int
		data   []byte
	}{
		{"Go", 400, goregular.TTF},
		{"Go", 500, gomedium.TTF},
		{"Go", 700, gobold.TTF},
		{"Go Mono", 400, gomono.TTF},
		{"Go Mono", 700, gomonobold.TTF},
	}
	for _, b := range builtins {
		if err := fl.Add(b.family, b.weight, b.data); err != nil {
			return nil, err
		}
	}
	fl.Alias("sans-serif", "Go")
	fl.Alias("system-ui", "Go")
	fl.Alias("monospace", "Go Mono")
	return fl, nil
}

// Add parses font data and registers it under family/weight.
func (fl *FontLibrary) Add(family string, weight int, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s %d: %w", family, weight, err)
	}
	fl.put(family, weight, f)
	return nil
}

func (fl *FontLibrary) put(family string, weight int, f *opentype.Font) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	if fl.names == nil {
		fl.names = make(map[string]string)
	}
	key := normFamily(family)
	fl.fonts[fontKey{family: key, weight: weight}] = f
	if _, ok := fl.names[key]; !ok {
		fl.names[key] = strings.TrimSpace(family)
	}
}

// Alias makes name resolve to the fonts of family.
func (fl *FontLibrary) Alias(name, family string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.aliases == nil {
		fl.aliases = make(map[string]string)
	}
	fl.aliases[normFamily(name)] = normFamily(family)
}

// LoadTTF loads a font file into the library under the given family/weight.
func (fl *FontLibrary) LoadTTF(family string, weight int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, weight, data)
}

// LoadDir walks dir and registers every .ttf/.otf file under the family and
// weight found in its name table. Unparseable files are skipped and counted.
func (fl *FontLibrary) LoadDir(dir string) (loaded, skipped int, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			skipped++
			return nil
		}
		f, perr := opentype.Parse(data)
		if perr != nil {
			skipped++
			return nil
		}
		family, weight := describe(f, path)
		fl.put(family, weight, f)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, skipped, fmt.Errorf("load fonts from %s: %w", dir, err)
	}
	return loaded, skipped, nil
}

// describe reads family and weight from the font's name table, falling back
// to the file name.
func describe(f *opentype.Font, path string) (string, int) {
	var buf sfnt.Buffer
	family, err := f.Name(&buf, sfnt.NameIDTypographicFamily)
	if err != nil || family == "" {
		family, err = f.Name(&buf, sfnt.NameIDFamily)
	}
	if err != nil || family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	sub, err := f.Name(&buf, sfnt.NameIDTypographicSubfamily)
	if err != nil || sub == "" {
		sub, _ = f.Name(&buf, sfnt.NameIDSubfamily)
	}
	if sub == "" {
		sub = filepath.Base(path)
	}
	return family, WeightFromName(sub)
}

// WeightFromName maps a subfamily style name such as "SemiBold Italic" to a
// CSS weight. Unknown names are 400.
func WeightFromName(name string) int {
	n := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(name))
	switch {
	case strings.Contains(n, "thin") || strings.Contains(n, "hairline"):
		return 100
	case strings.Contains(n, "extralight") || strings.Contains(n, "ultralight"):
		return 200
	case strings.Contains(n, "light"):
		return 300
	case strings.Contains(n, "medium"):
		return 500
	case strings.Contains(n, "semibold") || strings.Contains(n, "demibold"):
		return 600
	case strings.Contains(n, "extrabold") || strings.Contains(n, "ultrabold"):
		return 800
	case strings.Contains(n, "black") || strings.Contains(n, "heavy"):
		return 900
	case strings.Contains(n, "bold"):
		return 700
	}
	return 400
}

// Find returns the font for family closest to weight, or nil when the family
// is unknown. Exact weight wins; otherwise the nearest weight, preferring the
// heavier one on ties.
func (fl *FontLibrary) Find(family string, weight int) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	fam := normFamily(family)
	if a, ok := fl.aliases[fam]; ok {
		fam = a
	}
	if f, ok := fl.fonts[fontKey{family: fam, weight: weight}]; ok {
		return f
	}
	var best *opentype.Font
	bestDist := -1
	bestW := 0
	for k, f := range fl.fonts {
		if k.family != fam {
			continue
		}
		d := k.weight - weight
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && k.weight > bestW) {
			best, bestDist, bestW = f, d, k.weight
		}
	}
	return best
}

// Families lists the registered families by display name, sorted
// case-insensitively.
func (fl *FontLibrary) Families() []string {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	out := make([]string, 0, len(fl.names))
	for _, name := range fl.names {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}
