/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/errgroup"

	"textbehind/internal/domain"
)

// DecodeImage fully decodes r. Supported: JPEG, PNG, WEBP, GIF (first
// frame), BMP, TIFF. Failures wrap domain.ErrDecode.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return img, format, nil
}

// LoadPair decodes the source and, when cut is non-nil, the cutout in
// parallel and returns once both are completely decoded. Either failure
// fails the pair. The cutout is decoded but its size is not checked here;
// Composite enforces the dimension precondition.
func LoadPair(ctx context.Context, src, cut io.Reader) (domain.SourceImage, *domain.CutoutImage, error) {
	var (
		source domain.SourceImage
		cutout *domain.CutoutImage
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, format, err := DecodeImage(src)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		source = domain.SourceImage{Image: img, Format: format}
		return ctx.Err()
	})
	if cut != nil {
		g.Go(func() error {
			img, _, err := DecodeImage(cut)
			if err != nil {
				return fmt.Errorf("cutout: %w", err)
			}
			cutout = &domain.CutoutImage{Image: img}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SourceImage{}, nil, err
	}
	return source, cutout, nil
}

// LoadFiles is LoadPair for paths. An empty cutPath means no cutout.
func LoadFiles(ctx context.Context, srcPath, cutPath string) (domain.SourceImage, *domain.CutoutImage, error) {
	srcData, err := os.ReadFile(srcPath)
	if err != nil {
		return domain.SourceImage{}, nil, fmt.Errorf("read source %s: %w: %w", srcPath, domain.ErrDecode, err)
	}
	var cut io.Reader
	if cutPath != "" {
		data, err := os.ReadFile(cutPath)
		if err != nil {
			return domain.SourceImage{}, nil, fmt.Errorf("read cutout %s: %w: %w", cutPath, domain.ErrDecode, err)
		}
		cut = bytes.NewReader(data)
	}
	return LoadPair(ctx, bytes.NewReader(srcData), cut)
}
