// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"fmt"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// EWMA is an exponential moving average. The first warmUp samples after
// creation or Reset pass straight through.
type EWMA struct {
	smoothing float64 // 0..1, higher is smoother and laggier
	warmUp    int

	last  orientation.Pose
	count int
}

// NewEWMA creates an EWMA filter.
func NewEWMA(smoothing float64, warmUp int) (*EWMA, error) {
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("filter: ewma smoothing must be in [0, 1), got %g", smoothing)
	}
	if warmUp < 0 {
		return nil, fmt.Errorf("filter: ewma warm-up must be >= 0, got %d", warmUp)
	}
	return &EWMA{smoothing: smoothing, warmUp: warmUp}, nil
}

func (f *EWMA) Apply(relative, _ orientation.Pose) orientation.Pose {
	if f.count < f.warmUp {
		f.count++
		f.last = relative
		return relative
	}

	s := f.smoothing
	for i := range relative {
		f.last[i] = relative[i]*(1-s) + f.last[i]*s
	}
	return f.last
}

func (f *EWMA) Reset() {
	f.last = orientation.Pose{}
	f.count = 0
}
