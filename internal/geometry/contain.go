/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"fmt"
	"math"

	"textbehind/internal/domain"
)

// Fit describes where a source of a given size lands inside a box when it is
// scaled to fit while keeping its aspect ratio and centered ("object-fit:
// contain"). All values are in box pixels.
type Fit struct {
	OffsetX, OffsetY float64
	DrawW, DrawH     float64
	Scale            float64
}

// ContainRect computes contain-fit placement of a srcW x srcH image in a
// boxW x boxH box. Non-positive or non-finite inputs return
// domain.ErrDegenerateBox instead of NaN coordinates.
func ContainRect(srcW, srcH, boxW, boxH float64) (Fit, error) {
	if !positive(srcW) || !positive(srcH) {
		return Fit{}, fmt.Errorf("source %vx%v: %w", srcW, srcH, domain.ErrDegenerateBox)
	}
	if !positive(boxW) || !positive(boxH) {
		return Fit{}, fmt.Errorf("box %vx%v: %w", boxW, boxH, domain.ErrDegenerateBox)
	}
	s := math.Min(boxW/srcW, boxH/srcH)
	dw := srcW * s
	dh := srcH * s
	return Fit{
		OffsetX: (boxW - dw) / 2,
		OffsetY: (boxH - dh) / 2,
		DrawW:   dw,
		DrawH:   dh,
		Scale:   s,
	}, nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) }
