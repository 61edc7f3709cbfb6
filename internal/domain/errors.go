/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrNoSource is returned when a composite is requested without a base image.
	ErrNoSource = errors.New("source image is required")
	// ErrDecode marks a source or cutout that could not be decoded. Fatal for the composite.
	ErrDecode = errors.New("image decode failed")
	// ErrDimensionMismatch marks a cutout whose size differs from the source.
	ErrDimensionMismatch = errors.New("cutout dimensions do not match source")
	// ErrDegenerateBox marks a preview box that has not been measured yet.
	// Callers should retry once layout has settled.
	ErrDegenerateBox = errors.New("preview box has zero size")
	// ErrFontFallback marks a layer rendered with default glyph metrics. Not fatal.
	ErrFontFallback = errors.New("font unavailable, using fallback metrics")
	// ErrStale marks a composite result discarded because the image selection changed.
	ErrStale = errors.New("composite result is stale")
)

// DimensionError reports the sizes involved in a dimension mismatch.
type DimensionError struct {
	Source image.Point
	Cutout image.Point
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("cutout %dx%d does not match source %dx%d", e.Cutout.X, e.Cutout.Y, e.Source.X, e.Source.Y)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// CheckDimensions verifies the cutout precondition. A nil cutout passes.
func CheckDimensions(src SourceImage, cut *CutoutImage) error {
	if cut == nil || cut.Image == nil {
		return nil
	}
	if s, c := src.Size(), cut.Size(); s != c {
		return &DimensionError{Source: s, Cutout: c}
	}
	return nil
}
