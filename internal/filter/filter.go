// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter provides smoothing filters for the tracker pipeline.
// Every filter works per axis and drops its history on Reset.
package filter

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// Options carries the tunables for every filter kind.
type Options struct {
	EWMASmoothing float64
	EWMAWarmUp    int
	KalmanQ       float64
	KalmanR       float64
}

// Filter smooths the offset-relative pose. lastOutput is the pose sent on
// the previous tick, for filters that work in output space.
type Filter interface {
	Reset()
	Apply(relative, lastOutput orientation.Pose) orientation.Pose
}

// Passthrough is the identity filter.
type Passthrough struct{}

func (Passthrough) Reset() {}

func (Passthrough) Apply(relative, _ orientation.Pose) orientation.Pose { return relative }

// New builds a filter by name. "none" and "" give Passthrough.
func New(name string, opts Options) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return Passthrough{}, nil
	case "ewma":
		return NewEWMA(opts.EWMASmoothing, opts.EWMAWarmUp)
	case "kalman":
		return NewKalman(opts.KalmanQ, opts.KalmanR)
	default:
		return nil, fmt.Errorf("filter: unknown filter %q", name)
	}
}
