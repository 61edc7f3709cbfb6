/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{200, 30, 30, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 0})
			}
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", PNG, false}, {"PNG", PNG, false}, {".jpg", JPEG, false}, {"jpeg", JPEG, false},
		{"pdf", PDF, false}, {"gif", "", true},
	}
	for _, c := range cases {
		got, err := ParseFormat(c.in)
		if (err != nil) != c.err || got != c.want {
			t.Errorf("ParseFormat(%q) = %q, %v", c.in, got, err)
		}
	}
	if p, err := LookupPreset("web"); err != nil || p.Format != JPEG || p.Options.JPEGQuality != 85 {
		t.Fatalf("web preset: %+v %v", p, err)
	}
	if p, err := LookupPreset("pdf"); err != nil || p.Format != PDF {
		t.Fatalf("format name as preset: %+v %v", p, err)
	}
}

func TestEncodePNGIsLossless(t *testing.T) {
	src := checker(7, 5)
	var buf bytes.Buffer
	if err := Encode(&buf, src, PNG, Options{}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Bounds().Size() != src.Bounds().Size() {
		t.Fatalf("size %v", got.Bounds())
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			if color.NRGBAModel.Convert(got.At(x, y)) != src.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}

func TestEncodeJPEGFlattensOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16)) // fully transparent
	var buf bytes.Buffer
	if err := Encode(&buf, img, JPEG, Options{JPEGQuality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := got.At(8, 8).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Fatalf("transparent area should become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestEncodePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker(40, 20), PDF, Options{Title: "beach"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("not a pdf: %q", out[:min(len(out), 16)])
	}
	if !strings.Contains(out, "/MediaBox [0 0 40.00 20.00]") {
		t.Fatalf("page size should match the raster in points")
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n += len(p)
	return 0, errors.New("disk full")
}

func TestEncodeWritesNothingOnFailure(t *testing.T) {
	w := &failingWriter{}
	if err := Encode(w, image.NewRGBA(image.Rect(0, 0, 0, 0)), PNG, Options{}); err == nil {
		t.Fatalf("expected error for empty image")
	}
	if err := Encode(w, checker(2, 2), Format("tga"), Options{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if w.n != 0 {
		t.Fatalf("writer received %d bytes from a failed encode", w.n)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 250_000_000, time.UTC)
	if got := FileName("", PNG, now); got != "text-behind-image-20240309-140507.250.png" {
		t.Fatalf("FileName = %q", got)
	}
	if got := FileName("beach", JPEG, now); got != "beach-20240309-140507.250.jpg" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	name := "shot.png"
	p0, err := UniquePath(dir, name)
	if err != nil || p0 != filepath.Join(dir, name) {
		t.Fatalf("first path: %q %v", p0, err)
	}
	for _, n := range []string{"shot.png", "shot-1.png"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := UniquePath(dir, name)
	if err != nil || p != filepath.Join(dir, "shot-2.png") {
		t.Fatalf("collision path: %q %v", p, err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	img := checker(10, 6)
	a, err := WriteFile(dir, "", img, PNG, Options{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := WriteFile(dir, "", img, PNG, Options{})
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if a == b {
		t.Fatalf("two exports must not share a path: %s", a)
	}
	if !strings.HasPrefix(filepath.Base(a), DefaultPrefix+"-") || filepath.Ext(a) != ".png" {
		t.Fatalf("unexpected name %s", a)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly two files, temp files left behind? %v", entries)
	}

	if _, err := WriteFile(dir, "", image.NewRGBA(image.Rect(0, 0, 0, 0)), PNG, Options{}); err == nil {
		t.Fatalf("expected failure for empty image")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 2 {
		t.Fatalf("failed export left files: %v", entries)
	}
}

func TestWriteFileCommit(t *testing.T) {
	dir := t.TempDir()
	veto := errors.New("superseded")
	if _, err := WriteFileCommit(dir, "", checker(4, 4), PNG, Options{}, func(func() error) error { return veto }); !errors.Is(err, veto) {
		t.Fatalf("expected the commit error, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("vetoed export left files: %v", entries)
	}

	path, err := WriteFileCommit(dir, "", checker(4, 4), PNG, Options{}, func(publish func() error) error { return publish() })
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("published file missing: %v", err)
	}
}
