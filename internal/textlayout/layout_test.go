/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"textbehind/internal/domain"
)

// fixedWidths measures each string from a table; unknown strings are the sum
// of their per-rune widths.
type fixedWidths map[string]float64

func (f fixedWidths) Advance(s string) float64 {
	if w, ok := f[s]; ok {
		return w
	}
	var w float64
	for _, r := range s {
		w += f[string(r)]
	}
	return w
}

func TestLayout_SpacedScenario(t *testing.T) {
	run := Layout(fixedWidths{"A": 10, "B": 12}, "AB", 20)
	if run.Width != 42 {
		t.Fatalf("width = %v, want 42", run.Width)
	}
	if len(run.Glyphs) != 2 {
		t.Fatalf("glyphs = %d", len(run.Glyphs))
	}
	if run.Glyphs[0].CenterX != -16 || run.Glyphs[1].CenterX != 15 {
		t.Fatalf("centers = %v, %v; want -16, 15", run.Glyphs[0].CenterX, run.Glyphs[1].CenterX)
	}
}

func TestLayout_SymmetricAboutAnchor(t *testing.T) {
	m := fixedWidths{"W": 17, "i": 4, "d": 9, "e": 8, " ": 5, "x": 7.5}
	for _, text := range []string{"Wide", "i", "Wi de", "xxWxx", "eeeeeeeeeex"} {
		for _, k := range []float64{-12, -3.5, -1, 0.25, 1, 7, 40} {
			run := Layout(m, text, k)
			first := run.Glyphs[0]
			last := run.Glyphs[len(run.Glyphs)-1]
			left := first.Left()
			right := last.Left() + last.Advance
			if math.Abs(left+right) > 1e-9 {
				t.Fatalf("%q k=%v: span [%v,%v] not centered", text, k, left, right)
			}
			if math.Abs((right-left)-run.Width) > 1e-9 {
				t.Fatalf("%q k=%v: span %v != width %v", text, k, right-left, run.Width)
			}
			// consecutive glyph centers step by half-widths plus spacing
			for i := 1; i < len(run.Glyphs); i++ {
				a, b := run.Glyphs[i-1], run.Glyphs[i]
				step := a.Advance/2 + k + b.Advance/2
				if math.Abs((b.CenterX-a.CenterX)-step) > 1e-9 {
					t.Fatalf("%q k=%v: bad step at %d", text, k, i)
				}
			}
		}
	}
}

func TestLayout_NegativeSpacingNotClamped(t *testing.T) {
	run := Layout(fixedWidths{"A": 10}, "AAA", -15)
	if run.Width != 0 {
		t.Fatalf("width = %v, want 0 (30 - 2*15)", run.Width)
	}
	minX, maxX := run.Extent()
	if minX >= -run.Width/2 || maxX <= run.Width/2 {
		t.Fatalf("overlapping glyphs should extend past the nominal width: [%v,%v]", minX, maxX)
	}
}

func TestLayout_ZeroSpacingIsSingleCenteredRun(t *testing.T) {
	m := fixedWidths{"H": 9, "i": 3}
	run := Layout(m, "Hi", 0)
	if len(run.Glyphs) != 1 || run.Glyphs[0].Text != "Hi" || run.Glyphs[0].CenterX != 0 || run.Width != 12 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestLayout_Empty(t *testing.T) {
	run := Layout(fixedWidths{}, "", 5)
	if len(run.Glyphs) != 0 || run.Width != 0 {
		t.Fatalf("expected empty run, got %+v", run)
	}
}

func TestSplitGraphemes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"ab", 2},
		{"e\u0301", 1},
		{"\u00e9", 1},
		{"\U0001F1E9\U0001F1EA", 1},
		{"\U0001F469\u200d\U0001F469\u200d\U0001F467", 1},
		{"a\U0001F642b", 3},
		{"", 0},
	}
	for _, c := range cases {
		if got := SplitGraphemes(c.in); len(got) != c.want {
			t.Fatalf("SplitGraphemes(%q) = %q, want %d clusters", c.in, got, c.want)
		}
	}
	if got := SplitGraphemes("e\u0301"); got[0] != "\u00e9" {
		t.Fatalf("expected NFC composed e-acute, got %q", got[0])
	}
}

// The manual glyph path with zero spacing must land every glyph where the
// contiguous draw would put it when the font has no kerning.
func TestSpacedWithZeroMatchesContiguousPositions(t *testing.T) {
	m := FaceMeasurer{Face: mustBasic(t)}
	text := "Hello"
	whole := Layout(m, text, 0)
	parts := spaced(m, SplitGraphemes(text), 0)
	pen := whole.Glyphs[0].Left()
	for _, g := range parts.Glyphs {
		if g.Left() != pen {
			t.Fatalf("glyph %q at %v, contiguous pen at %v", g.Text, g.Left(), pen)
		}
		pen += g.Advance
	}
}

func TestDraw_ZeroSpacingMatchesNativeCenteredDraw(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	face, _, err := OTProvider{Lib: lib}.Resolve(FontSpec{Family: "Go", Weight: 700, SizePx: 40})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	text := "Behind"
	a := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	b := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	src := image.NewUniform(color.Black)

	Draw(a, src, face, Layout(FaceMeasurer{Face: face}, text, 0), 150, 50)

	// native path: one DrawString starting at anchor - width/2
	met := metricsOf(face)
	w := toPx(font.MeasureString(face, text))
	d := &font.Drawer{Dst: b, Src: src, Face: face}
	d.Dot.X = toFixed(150 - w/2)
	d.Dot.Y = toFixed(50 + (met.Ascent-met.Descent)/2)
	d.DrawString(text)

	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel buffers differ at byte %d", i)
		}
	}
}

func TestBoundsContainDrawnPixels(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	face, _, _ := OTProvider{Lib: lib}.Resolve(FontSpec{Family: "Go", Weight: 400, SizePx: 32})
	run := Layout(FaceMeasurer{Face: face}, "Tilt gy", 6)
	dst := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	Draw(dst, image.NewUniform(color.White), face, run, 200, 100)
	b := Bounds(face, run, 4).Add(image.Pt(200, 100))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			if dst.NRGBAAt(x, y).A != 0 && !image.Pt(x, y).In(b) {
				t.Fatalf("pixel (%d,%d) outside bounds %v", x, y, b)
			}
		}
	}
}

func TestBoundsCoverOverhangingInk(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	face, _, _ := OTProvider{Lib: lib}.Resolve(FontSpec{Family: "Go", Weight: 400, SizePx: 400})
	run := Layout(FaceMeasurer{Face: face}, "j", 0)
	dst := image.NewNRGBA(image.Rect(0, 0, 1000, 1000))
	Draw(dst, image.NewUniform(color.White), face, run, 500, 500)

	// the hook of "j" reaches left of its advance box
	minX, _ := run.Extent()
	b := Bounds(face, run, 1).Add(image.Pt(500, 500))
	inkLeft := 1000
	for y := 0; y < 1000; y++ {
		for x := 0; x < 1000; x++ {
			if dst.NRGBAAt(x, y).A == 0 {
				continue
			}
			inkLeft = min(inkLeft, x)
			if !image.Pt(x, y).In(b) {
				t.Fatalf("pixel (%d,%d) outside bounds %v", x, y, b)
			}
		}
	}
	if float64(inkLeft) >= 500+minX {
		t.Fatalf("expected ink left of the advance box: ink %d, advance %v", inkLeft, 500+minX)
	}
}

func TestOTProvider_Fallback(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	p := OTProvider{Lib: lib}
	face, met, err := p.Resolve(FontSpec{Family: "Does Not Exist", Weight: 400, SizePx: 24})
	if !errors.Is(err, domain.ErrFontFallback) {
		t.Fatalf("expected ErrFontFallback, got %v", err)
	}
	if face == nil || met.Ascent <= 0 {
		t.Fatalf("fallback must still provide a face: %v %+v", face, met)
	}
	if _, _, err := (OTProvider{}).Resolve(FontSpec{Family: "Go", SizePx: 10}); !errors.Is(err, domain.ErrFontFallback) {
		t.Fatalf("nil library should fall back, got %v", err)
	}
	if _, _, err := p.Resolve(FontSpec{Family: "sans-serif", Weight: 400, SizePx: 24}); err != nil {
		t.Fatalf("alias should resolve: %v", err)
	}
}

func TestFontLibrary_FindNearestWeight(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if lib.Find("GO", 700) == nil {
		t.Fatalf("case-insensitive family lookup failed")
	}
	if lib.Find("Go", 650) != lib.Find("Go", 700) {
		t.Fatalf("650 should resolve to 700")
	}
	if lib.Find("Go", 100) != lib.Find("Go", 400) {
		t.Fatalf("100 should resolve to 400")
	}
	if lib.Find("Go", 600) != lib.Find("Go", 700) {
		t.Fatalf("600 should prefer heavier 700 over 500 on a tie")
	}
	if lib.Find("Comic Neue", 400) != nil {
		t.Fatalf("unknown family should be nil")
	}
}

func TestWeightFromName(t *testing.T) {
	cases := map[string]int{
		"Regular": 400, "Bold": 700, "SemiBold Italic": 600, "Extra-Light": 200,
		"Black": 900, "Medium": 500, "Thin": 100, "ExtraBold": 800, "Light": 300,
	}
	for in, want := range cases {
		if got := WeightFromName(in); got != want {
			t.Fatalf("WeightFromName(%q) = %d, want %d", in, got, want)
		}
	}
}

func mustBasic(t *testing.T) font.Face {
	t.Helper()
	f, _, err := BasicProvider{}.Resolve(FontSpec{})
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	return f
}

func TestFontLibrary_FamiliesSortedDisplayNames(t *testing.T) {
	lib, err := NewDefaultLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if got := strings.Join(lib.Families(), ","); got != "Go,Go Mono" {
		t.Fatalf("families %q", got)
	}
}

func TestFontLibrary_LoadDirZeroValue(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"GoRegular.ttf": goregular.TTF,
		"broken.otf":    []byte("not a font"),
		"README.txt":    []byte("ignored"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var fl FontLibrary
	loaded, skipped, err := fl.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if loaded != 1 || skipped != 1 {
		t.Fatalf("loaded %d skipped %d", loaded, skipped)
	}
	if fl.Find("go", 400) == nil {
		t.Fatalf("loaded font not found")
	}
	if got := fl.Families(); len(got) != 1 || got[0] != "Go" {
		t.Fatalf("families %v", got)
	}
}
