// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"fmt"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// Kalman runs an independent scalar Kalman filter on each axis with a
// constant-position model.
type Kalman struct {
	q float64 // process noise covariance
	r float64 // measurement noise covariance

	x      orientation.Pose // estimate
	p      [orientation.NumAxes]float64
	seeded bool
}

// NewKalman creates a per-axis Kalman filter.
func NewKalman(q, r float64) (*Kalman, error) {
	if q <= 0 || r <= 0 {
		return nil, fmt.Errorf("filter: kalman q and r must be > 0, got q=%g r=%g", q, r)
	}
	k := &Kalman{q: q, r: r}
	k.Reset()
	return k, nil
}

func (k *Kalman) Apply(relative, _ orientation.Pose) orientation.Pose {
	// The first measurement after a reset seeds the estimate so the
	// output does not ramp in from zero.
	if !k.seeded {
		k.x = relative
		k.seeded = true
		return k.x
	}

	for i := range relative {
		// predict
		k.p[i] += k.q

		// correct
		gain := k.p[i] / (k.p[i] + k.r)
		k.x[i] += gain * (relative[i] - k.x[i])
		k.p[i] *= 1 - gain
	}
	return k.x
}

func (k *Kalman) Reset() {
	k.x = orientation.Pose{}
	for i := range k.p {
		k.p[i] = 1
	}
	k.seeded = false
}
