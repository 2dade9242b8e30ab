// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compensate

import (
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

const tol = 1e-9

func assertMatrixInDelta(t *testing.T, want, got Matrix) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, tol, "row %d col 0", i)
		assert.InDelta(t, want[i].Y, got[i].Y, tol, "row %d col 1", i)
		assert.InDelta(t, want[i].Z, got[i].Z, tol, "row %d col 2", i)
	}
}

func TestZeroAnglesIsIdentity(t *testing.T) {
	assertMatrixInDelta(t, Identity, Rotation(0, 0, 0))

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		p := orientation.Pose{rng.NormFloat64() * 50, rng.NormFloat64() * 50, rng.NormFloat64() * 50}
		got := Pose(p)
		for a := range got {
			assert.InDelta(t, p[a], got[a], tol)
		}
	}
}

func TestRotationIsOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 500; i++ {
		// include angles well outside [-180, 180]
		yaw := (rng.Float64() - 0.5) * 2000
		pitch := (rng.Float64() - 0.5) * 2000
		roll := (rng.Float64() - 0.5) * 2000

		m := Rotation(yaw, pitch, roll)
		assertMatrixInDelta(t, Identity, m.Mul(m.Transpose()))
		assertMatrixInDelta(t, Identity, m.Transpose().Mul(m))
	}
}

func TestRotationPeriodicity(t *testing.T) {
	assertMatrixInDelta(t, Rotation(30, -20, 10), Rotation(390, -380, 370))
	assertMatrixInDelta(t, Rotation(-170, 0, 0), Rotation(190, 0, 0))
}

func TestApplyPreservesLength(t *testing.T) {
	v := r3.Vector{X: 3, Y: -4, Z: 12}
	got := Rotation(73, -41, 12).Apply(v)
	assert.InDelta(t, v.Norm(), got.Norm(), tol)
}

func TestPoseYawOnly(t *testing.T) {
	// 90° yaw swings +X onto -Z and +Z onto +X.
	got := Pose(orientation.Pose{1, 0, 0, 90, 0, 0})
	assert.InDelta(t, 0, got[orientation.X], tol)
	assert.InDelta(t, 0, got[orientation.Y], tol)
	assert.InDelta(t, -1, got[orientation.Z], tol)

	got = Pose(orientation.Pose{0, 0, 1, 90, 0, 0})
	assert.InDelta(t, 1, got[orientation.X], tol)
	assert.InDelta(t, 0, got[orientation.Z], tol)

	// rotation components are untouched
	assert.Equal(t, 90.0, got[orientation.Yaw])
	assert.Zero(t, got[orientation.Pitch])
}

func TestPitchOnlyRotatesYZ(t *testing.T) {
	m := Rotation(0, 90, 0)
	assertMatrixInDelta(t, Matrix{
		{X: 1},
		{Z: -1},
		{Y: 1},
	}, m)

	// rows stay orthogonal when pitch is combined with roll
	m = Rotation(0, 30, 90)
	assert.InDelta(t, 0, m[0].Dot(m[2]), tol)
	assert.InDelta(t, 0, m[1].Dot(m[2]), tol)

	v := r3.Vector{X: 3, Y: -4, Z: 12}
	assert.InDelta(t, 13, Rotation(0, 30, 0).Apply(v).Norm(), tol)
}
