/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// TiltParams tunes the pseudo-3D tilt approximation.
type TiltParams struct {
	// SkewK controls how pronounced the tilt skew looks.
	SkewK float64
	// Perspective, when non-zero, exaggerates foreshortening by scaling each
	// axis with 1+sin(tilt)*Perspective.
	Perspective float64
}

// DefaultTilt is the calibration the tilt sliders were tuned against.
var DefaultTilt = TiltParams{SkewK: 0.7}

// BuildTransform approximates rotateX/rotateY tilt plus an in-plane rotation
// with a single 2D affine matrix:
//
//	M = Rotate(rot) · Skew(sin(tiltY)·k, sin(tiltX)·k) · Scale(cos(tiltY), cos(tiltX))
//
// Scale and skew act in the text's local frame, rotation in the final plane.
// There is no depth or perspective division: this is a 2D approximation, not
// a camera projection, and output is calibrated to exactly this form.
// BuildTransform(0, 0, 0, p) is the identity for any p.
func BuildTransform(rotationDeg, tiltXDeg, tiltYDeg float64, p TiltParams) Affine {
	tx := Radians(tiltXDeg)
	ty := Radians(tiltYDeg)

	sx := math.Cos(ty)
	sy := math.Cos(tx)
	if p.Perspective != 0 {
		sx *= 1 + math.Sin(ty)*p.Perspective
		sy *= 1 + math.Sin(tx)*p.Perspective
	}
	kx := math.Sin(ty) * p.SkewK
	ky := math.Sin(tx) * p.SkewK

	return Rotate(Radians(rotationDeg)).Mul(Skew(kx, ky).Mul(Scale(sx, sy)))
}
