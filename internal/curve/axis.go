// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package curve

// Branch identifies which of an axis' two curves produced a value.
type Branch int

const (
	BranchPrimary Branch = iota
	BranchAlt
)

func (b Branch) String() string {
	if b == BranchAlt {
		return "alt"
	}
	return "primary"
}

// Axis is the calibration and curve configuration of one degree of freedom.
type Axis struct {
	Zero       float64 `yaml:"zero" json:"zero"`
	Inverted   bool    `yaml:"inverted" json:"inverted"`
	Curve      Curve   `yaml:"curve" json:"curve"`
	CurveAlt   Curve   `yaml:"curve_alt" json:"curve_alt"`
	AltEnabled bool    `yaml:"alt_enabled" json:"alt_enabled"`

	// Observational flags for UIs, set from the Branch returned by Map.
	// They never feed back into Map.
	CurveActive    bool `yaml:"-" json:"curve_active"`
	CurveAltActive bool `yaml:"-" json:"curve_alt_active"`
}

// Sign is the inversion multiplier, -1 when Inverted.
func (a Axis) Sign() float64 {
	if a.Inverted {
		return -1
	}
	return 1
}

// Map shapes position: negative input uses CurveAlt when AltEnabled,
// everything else uses Curve. The result is inverted then offset by Zero.
// The branch is picked from the sign of this input alone, with no
// hysteresis, so jitter around zero toggles it every call.
func (a Axis) Map(position float64) (float64, Branch) {
	if position < 0 && a.AltEnabled {
		return a.Sign()*a.CurveAlt.Value(position) + a.Zero, BranchAlt
	}
	return a.Sign()*a.Curve.Value(position) + a.Zero, BranchPrimary
}

// MarkActive records which branch was used on the last evaluation.
func (a *Axis) MarkActive(b Branch) {
	a.CurveActive = b == BranchPrimary
	a.CurveAltActive = b == BranchAlt
}

// ClearActive marks the axis idle.
func (a *Axis) ClearActive() {
	a.CurveActive = false
	a.CurveAltActive = false
}
