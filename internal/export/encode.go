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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Encode writes img to w in format f. The whole encoding is produced in
// memory first so w receives nothing when encoding fails.
func Encode(w io.Writer, img image.Image, f Format, opt Options) error {
	b, err := encodeBytes(img, f, opt)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

func encodeBytes(img image.Image, f Format, opt Options) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("encode %s: empty image", f)
	}
	var buf bytes.Buffer
	switch f {
	case PNG, "":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case JPEG:
		q := opt.JPEGQuality
		if q <= 0 || q > 100 {
			q = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, flatten(img, color.White), &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case PDF:
		if err := encodePDF(&buf, img, opt); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("encode: unknown format %q", f)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque background.
func flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// encodePDF places the raster on a single page sized W x H points so one
// image pixel maps to one point.
func encodePDF(w io.Writer, img image.Image, opt Options) error {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return fmt.Errorf("encode pdf image: %w", err)
	}
	sz := img.Bounds().Size()
	wd, ht := float64(sz.X), float64(sz.Y)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetCreator("textbehind", false)
	pdf.AddPage()

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("composite", imgOpt, &pngBuf)
	pdf.ImageOptions("composite", 0, 0, wd, ht, false, imgOpt, 0, "")
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("encode pdf: %w", err)
	}
	return nil
}
