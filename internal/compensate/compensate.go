// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package compensate re-expresses head translation in the frame implied by
// head rotation, so turning the head does not read as moving it.
package compensate

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// Matrix is a 3x3 matrix stored as rows.
type Matrix [3]r3.Vector

// Identity is the 3x3 identity matrix.
var Identity = Matrix{{X: 1}, {Y: 1}, {Z: 1}}

// Rotation builds the yaw-pitch-roll rotation for angles in degrees.
// Angles are not clamped; sine and cosine handle any finite value.
func Rotation(yaw, pitch, roll float64) Matrix {
	h := yaw * math.Pi / 180
	p := pitch * math.Pi / 180
	b := roll * math.Pi / 180

	sinH, cosH := math.Sincos(h)
	sinP, cosP := math.Sincos(p)
	sinB, cosB := math.Sincos(b)

	return Matrix{
		{
			X: cosH*cosB - sinH*sinP*sinB,
			Y: -sinB * cosP,
			Z: sinH*cosB + cosH*sinP*sinB,
		},
		{
			X: cosH*sinB + sinH*sinP*cosB,
			Y: cosB * cosP,
			Z: sinB*sinH - cosH*sinP*cosB,
		},
		{
			X: -sinH * cosP,
			Y: sinP,
			Z: cosH * cosP,
		},
	}
}

// Apply returns m·v.
func (m Matrix) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{X: m[0].Dot(v), Y: m[1].Dot(v), Z: m[2].Dot(v)}
}

// Transpose returns mᵀ.
func (m Matrix) Transpose() Matrix {
	return Matrix{
		{X: m[0].X, Y: m[1].X, Z: m[2].X},
		{X: m[0].Y, Y: m[1].Y, Z: m[2].Y},
		{X: m[0].Z, Y: m[1].Z, Z: m[2].Z},
	}
}

// Mul returns m·o.
func (m Matrix) Mul(o Matrix) Matrix {
	ot := o.Transpose()
	var out Matrix
	for i := range m {
		out[i] = r3.Vector{X: m[i].Dot(ot[0]), Y: m[i].Dot(ot[1]), Z: m[i].Dot(ot[2])}
	}
	return out
}

// Pose rotates the translation of p by its own rotation. The rotation
// components pass through unchanged.
func Pose(p orientation.Pose) orientation.Pose {
	yaw, pitch, roll := p.Rotation()
	x, y, z := p.Translation()

	t := Rotation(yaw, pitch, roll).Apply(r3.Vector{X: x, Y: y, Z: z})

	out := p
	out[orientation.X] = t.X
	out[orientation.Y] = t.Y
	out[orientation.Z] = t.Z
	return out
}
