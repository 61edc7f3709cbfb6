/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"errors"
	"math"
	"testing"

	"textbehind/internal/domain"
)

func approx(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestContainRect_Letterboxed(t *testing.T) {
	f, err := ContainRect(1000, 500, 500, 500)
	if err != nil {
		t.Fatalf("contain: %v", err)
	}
	want := Fit{OffsetX: 0, OffsetY: 125, DrawW: 500, DrawH: 250, Scale: 0.5}
	if f != want {
		t.Fatalf("got %+v, want %+v", f, want)
	}
}

func TestContainRect_Pillarboxed(t *testing.T) {
	f, err := ContainRect(500, 1000, 800, 400)
	if err != nil {
		t.Fatalf("contain: %v", err)
	}
	if f.Scale != 0.4 || f.DrawW != 200 || f.DrawH != 400 || f.OffsetX != 300 || f.OffsetY != 0 {
		t.Fatalf("unexpected fit %+v", f)
	}
}

func TestContainRect_Degenerate(t *testing.T) {
	cases := [][4]float64{
		{1000, 500, 0, 500},
		{1000, 500, 500, 0},
		{0, 500, 500, 500},
		{1000, 500, math.NaN(), 500},
		{1000, 500, math.Inf(1), 500},
	}
	for _, c := range cases {
		_, err := ContainRect(c[0], c[1], c[2], c[3])
		if !errors.Is(err, domain.ErrDegenerateBox) {
			t.Fatalf("ContainRect%v: expected ErrDegenerateBox, got %v", c, err)
		}
	}
}

func TestLetterboxMapper_Scenario(t *testing.T) {
	m, err := NewLetterboxMapper(1000, 500, domain.PreviewBox{Width: 500, Height: 500})
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	if fit := m.Fit(); fit.DrawW != 500 || fit.DrawH != 250 || fit.OffsetY != 125 || fit.Scale != 0.5 {
		t.Fatalf("unexpected preview fit %+v", fit)
	}
	p := m.Map(Position{})
	if p.X != 500 || p.Y != 250 {
		t.Fatalf("anchor = (%v,%v), want (500,250)", p.X, p.Y)
	}
	if got := 100 * p.Scale; got != 200 {
		t.Fatalf("scaled font = %v, want 200", got)
	}
}

func TestLetterboxMapper_RoundTrip(t *testing.T) {
	sizes := [][2]float64{{1000, 500}, {640, 480}, {3024, 4032}, {1920, 1080}, {333, 777}}
	boxes := []domain.PreviewBox{{Width: 500, Height: 500}, {Width: 800, Height: 450}, {Width: 375, Height: 667}}
	positions := []Position{{0, 0}, {-25, 10}, {30, -40}, {-50, 50}, {50, -50}, {120, 80}}
	for _, sz := range sizes {
		for _, box := range boxes {
			m, err := NewLetterboxMapper(sz[0], sz[1], box)
			if err != nil {
				t.Fatalf("mapper: %v", err)
			}
			fit := m.Fit()
			for _, pos := range positions {
				got := m.Map(pos)
				// read the position off the preview and scale it manually
				px, py := PreviewPoint(box, pos)
				wantX := (px - fit.OffsetX) * sz[0] / fit.DrawW
				wantY := (py - fit.OffsetY) * sz[0] / fit.DrawW
				if !approx(got.X, wantX, 1) || !approx(got.Y, wantY, 1) {
					t.Fatalf("size %v box %+v pos %+v: got (%v,%v) want (%v,%v)", sz, box, pos, got.X, got.Y, wantX, wantY)
				}
			}
		}
	}
}

func TestLetterboxMapper_MatchingAspectHasNoOffset(t *testing.T) {
	m, err := NewLetterboxMapper(2000, 1000, domain.PreviewBox{Width: 400, Height: 200})
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	p := m.Map(Position{Left: -50, Top: 50})
	if !approx(p.X, 0, 1e-9) || !approx(p.Y, 0, 1e-9) || p.Scale != 5 {
		t.Fatalf("top-left corner should map to origin, got %+v", p)
	}
}

func TestFixedBoxMapper(t *testing.T) {
	m, err := NewFixedBoxMapper(1000, 500, domain.PreviewBox{Width: 500, Height: 500})
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	p := m.Map(Position{})
	if p.X != 500 || p.Y != 250 || p.Scale != 2 {
		t.Fatalf("got %+v", p)
	}
	p = m.Map(Position{Left: 50, Top: -50})
	if p.X != 1000 || p.Y != 500 {
		t.Fatalf("corner got %+v", p)
	}
}

func TestNewMapper_DegenerateBox(t *testing.T) {
	for _, s := range []Strategy{StrategyLetterbox, StrategyFixed} {
		m, err := NewMapper(s, 100, 100, domain.PreviewBox{})
		if !errors.Is(err, domain.ErrDegenerateBox) {
			t.Fatalf("%s: expected ErrDegenerateBox, got %v", s, err)
		}
		if m != nil {
			t.Fatalf("%s: expected nil mapper on error", s)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyLetterbox, "Letterbox": StrategyLetterbox, "b": StrategyLetterbox, "fixed": StrategyFixed, "A": StrategyFixed} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("perspective"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestBuildTransform_Identity(t *testing.T) {
	for _, p := range []TiltParams{DefaultTilt, {SkewK: 2, Perspective: 0.3}, {}} {
		m := BuildTransform(0, 0, 0, p)
		if !m.IsIdentity() {
			t.Fatalf("BuildTransform(0,0,0,%+v) = %+v, want identity", p, m)
		}
	}
}

func TestBuildTransform_RotationOnly(t *testing.T) {
	m := BuildTransform(90, 0, 0, DefaultTilt)
	q := m.Apply(Pt{X: 1, Y: 0})
	if !approx(q.X, 0, 1e-12) || !approx(q.Y, 1, 1e-12) {
		t.Fatalf("90deg should map +x to +y (screen space), got %+v", q)
	}
}

func TestBuildTransform_TiltComposition(t *testing.T) {
	k := 0.7
	ty := Radians(30)
	m := BuildTransform(0, 0, 30, TiltParams{SkewK: k})
	// local frame: scale x by cos, skew x by sin*k*y
	want := Affine{A: math.Cos(ty), B: 0, C: math.Sin(ty) * k, D: 1}
	if !approx(m.A, want.A, 1e-12) || !approx(m.B, want.B, 1e-12) || !approx(m.C, want.C, 1e-12) || !approx(m.D, want.D, 1e-12) {
		t.Fatalf("got %+v want %+v", m, want)
	}

	tx := Radians(-20)
	m = BuildTransform(0, -20, 0, TiltParams{SkewK: k})
	if !approx(m.A, 1, 1e-12) || !approx(m.B, math.Sin(tx)*k, 1e-12) || !approx(m.D, math.Cos(tx), 1e-12) {
		t.Fatalf("tiltX got %+v", m)
	}
}

func TestBuildTransform_OrderRotationLast(t *testing.T) {
	p := DefaultTilt
	m := BuildTransform(45, 10, 20, p)
	tilt := Skew(math.Sin(Radians(20))*p.SkewK, math.Sin(Radians(10))*p.SkewK).Mul(Scale(math.Cos(Radians(20)), math.Cos(Radians(10))))
	want := Rotate(Radians(45)).Mul(tilt)
	if m != want {
		t.Fatalf("order mismatch: %+v vs %+v", m, want)
	}
}

func TestBuildTransform_Perspective(t *testing.T) {
	plain := BuildTransform(0, 0, 30, TiltParams{SkewK: 0.7})
	persp := BuildTransform(0, 0, 30, TiltParams{SkewK: 0.7, Perspective: 0.3})
	if !approx(persp.A, plain.A*(1+0.5*0.3), 1e-12) {
		t.Fatalf("perspective factor not applied: %v vs %v", persp.A, plain.A)
	}
}

func TestAffineInvert(t *testing.T) {
	m := Translate(10, -3).Mul(BuildTransform(33, 12, -27, DefaultTilt))
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible")
	}
	p := Pt{X: 7, Y: 11}
	back := inv.Apply(m.Apply(p))
	if !approx(back.X, p.X, 1e-9) || !approx(back.Y, p.Y, 1e-9) {
		t.Fatalf("round trip %+v -> %+v", p, back)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix should not invert")
	}
}
