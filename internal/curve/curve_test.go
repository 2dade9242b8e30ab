// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package curve

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

func TestCurveValue(t *testing.T) {
	c, err := New([]Point{{In: 10, Out: 5}, {In: 20, Out: 25}, {In: 30, Out: 30}})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"origin", 0, 0},
		{"first segment", 5, 2.5},
		{"on point", 10, 5},
		{"second segment", 15, 15},
		{"last point", 30, 30},
		{"past last point", 90, 30},
		{"negative mirrors", -15, -15},
		{"negative past end", -1000, -30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Value(tt.in), 1e-12)
		})
	}
	assert.Equal(t, 30.0, c.MaxInput())
}

func TestCurveIdentity(t *testing.T) {
	var c Curve
	for _, x := range []float64{-180, -0.5, 0, 3, 720} {
		assert.Equal(t, x, c.Value(x))
	}
	assert.Zero(t, c.MaxInput())
}

func TestLinear(t *testing.T) {
	c := Linear(2, 45)
	assert.InDelta(t, 20, c.Value(10), 1e-12)
	assert.InDelta(t, -90, c.Value(-60), 1e-12)
}

func TestCurveValidate(t *testing.T) {
	_, err := New([]Point{{In: 10, Out: 1}, {In: 10, Out: 2}})
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = New([]Point{{In: 0, Out: 1}})
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = New([]Point{{In: 5, Out: math.NaN()}})
	assert.ErrorContains(t, err, "not finite")

	pts := []Point{{In: 1, Out: 1}}
	c, err := New(pts)
	require.NoError(t, err)
	pts[0].Out = 99
	assert.Equal(t, 1.0, c.Points[0].Out, "New copies its input")
}

func altAxis() Axis {
	return Axis{
		Curve:    Linear(1, 100),
		CurveAlt: Linear(3, 100),
	}
}

func TestAxisMapBranches(t *testing.T) {
	t.Run("non-negative input never uses alt", func(t *testing.T) {
		for _, alt := range []bool{false, true} {
			a := altAxis()
			a.AltEnabled = alt
			for _, x := range []float64{0, 0.001, 5, 99} {
				v, b := a.Map(x)
				assert.Equal(t, BranchPrimary, b)
				assert.InDelta(t, x, v, 1e-12)
			}
		}
	})

	t.Run("negative input without alt uses primary", func(t *testing.T) {
		a := altAxis()
		v, b := a.Map(-10)
		assert.Equal(t, BranchPrimary, b)
		assert.InDelta(t, -10, v, 1e-12)
	})

	t.Run("negative input with alt uses alt", func(t *testing.T) {
		a := altAxis()
		a.AltEnabled = true
		v, b := a.Map(-10)
		assert.Equal(t, BranchAlt, b)
		assert.InDelta(t, -30, v, 1e-12)

		a.MarkActive(b)
		assert.False(t, a.CurveActive)
		assert.True(t, a.CurveAltActive)
	})

	t.Run("sign jitter toggles every call", func(t *testing.T) {
		a := altAxis()
		a.AltEnabled = true
		want := BranchAlt
		for _, x := range []float64{-0.01, 0.01, -0.01, 0.01} {
			_, b := a.Map(x)
			assert.Equal(t, want, b)
			if want == BranchAlt {
				want = BranchPrimary
			} else {
				want = BranchAlt
			}
		}
	})
}

func TestAxisInvertAndZero(t *testing.T) {
	a := Axis{Inverted: true, Zero: 2.5}
	v, _ := a.Map(10)
	assert.InDelta(t, -7.5, v, 1e-12, "invert applies before the zero offset")
	assert.Equal(t, -1.0, a.Sign())

	a.Inverted = false
	assert.Equal(t, 1.0, a.Sign())
}

func TestAxisActiveFlags(t *testing.T) {
	var a Axis
	assert.False(t, a.CurveActive || a.CurveAltActive, "idle axis has no active branch")

	a.MarkActive(BranchPrimary)
	assert.True(t, a.CurveActive)
	assert.False(t, a.CurveAltActive)

	a.ClearActive()
	assert.False(t, a.CurveActive || a.CurveAltActive)
	assert.Equal(t, "alt", BranchAlt.String())
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axes.yaml")

	var axes Axes
	axes[orientation.Yaw] = Axis{
		Zero:       1.5,
		Inverted:   true,
		Curve:      Curve{Points: []Point{{In: 10, Out: 20}, {In: 45, Out: 180}}},
		CurveAlt:   Linear(0.5, 90),
		AltEnabled: true,
	}
	axes[orientation.Yaw].MarkActive(BranchAlt)
	axes[orientation.Z] = Axis{Zero: -3}

	require.NoError(t, SaveProfile(path, axes))

	got, err := LoadProfile(path)
	require.NoError(t, err)

	want := axes
	want[orientation.Yaw].ClearActive()
	assert.Equal(t, want, got)
}

func TestLoadProfileMissingFile(t *testing.T) {
	axes, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Axes{}, axes)
}

func TestLoadProfileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("axes:\n  heave:\n    zero: 1\n"), 0o644))
	_, err := LoadProfile(unknown)
	assert.ErrorContains(t, err, "heave")

	unsorted := filepath.Join(dir, "unsorted.yaml")
	require.NoError(t, os.WriteFile(unsorted, []byte(
		"axes:\n  pitch:\n    curve:\n      points:\n        - {in: 20, out: 1}\n        - {in: 10, out: 2}\n"), 0o644))
	_, err = LoadProfile(unsorted)
	assert.ErrorIs(t, err, ErrUnsorted)
}
