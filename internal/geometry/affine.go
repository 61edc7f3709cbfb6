/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// 2D affine transforms in float64 for native-resolution placement.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Affine represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f], the same order as a canvas setTransform call.
type Affine struct{ A, B, C, D, E, F float64 }

var Identity = Affine{A: 1, D: 1}

// Mul returns m·n: n is applied first, then m.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Det is the determinant of the linear part.
func (m Affine) Det() float64 { return m.A*m.D - m.B*m.C }

// Invert returns the inverse transform. ok is false for singular matrices,
// which happen when a tilt collapses an axis to zero.
func (m Affine) Invert() (Affine, bool) {
	det := m.Det()
	if det == 0 || math.IsNaN(det) {
		return Affine{}, false
	}
	inv := 1 / det
	return Affine{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}

func (m Affine) IsIdentity() bool { return m == Identity }

// Array returns [a b c d e f].
func (m Affine) Array() [6]float64 { return [6]float64{m.A, m.B, m.C, m.D, m.E, m.F} }

func Translate(tx, ty float64) Affine { return Affine{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine     { return Affine{A: sx, D: sy} }

// Skew shears x by sx*y and y by sy*x.
func Skew(sx, sy float64) Affine { return Affine{A: 1, B: sy, C: sx, D: 1} }

// Rotate is a clockwise rotation in screen space (y down).
func Rotate(rad float64) Affine {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Affine{A: c, B: s, C: -s, D: c}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Bounds returns the axis-aligned bounding box of the rectangle (x0,y0)-(x1,y1)
// after transformation.
func (m Affine) Bounds(x0, y0, x1, y1 float64) (minX, minY, maxX, maxY float64) {
	pts := [4]Pt{m.Apply(Pt{x0, y0}), m.Apply(Pt{x1, y0}), m.Apply(Pt{x0, y1}), m.Apply(Pt{x1, y1})}
	minX, minY = pts[0].X, pts[0].Y
	maxX, maxY = minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return
}
