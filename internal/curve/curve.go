// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package curve shapes raw axis displacement into output values. A Curve
// is a piecewise-linear response through user control points; an Axis
// combines two curves with the per-axis calibration (zero, invert).
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnsorted is returned when control point inputs are not strictly increasing.
var ErrUnsorted = errors.New("curve: control points must have strictly increasing inputs")

// Point is one control point: input displacement to output response.
type Point struct {
	In  float64 `yaml:"in" json:"in"`
	Out float64 `yaml:"out" json:"out"`
}

// Curve maps |position| through its points from the origin, holds the
// last output past the last point and restores the sign of the input.
// A Curve without points is the identity.
type Curve struct {
	Points []Point `yaml:"points,omitempty" json:"points,omitempty"`
}

// New validates points and returns a Curve owning a copy of them.
func New(points []Point) (Curve, error) {
	c := Curve{Points: append([]Point(nil), points...)}
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}
	return c, nil
}

// Linear returns a curve with slope gain up to maxIn, flat beyond it.
func Linear(gain, maxIn float64) Curve {
	return Curve{Points: []Point{{In: maxIn, Out: gain * maxIn}}}
}

// Validate checks inputs are positive, finite and strictly increasing.
func (c Curve) Validate() error {
	prev := 0.0
	for i, p := range c.Points {
		if math.IsNaN(p.In) || math.IsInf(p.In, 0) || math.IsNaN(p.Out) || math.IsInf(p.Out, 0) {
			return fmt.Errorf("curve: point %d is not finite", i)
		}
		if p.In <= prev {
			return fmt.Errorf("point %d (in=%g): %w", i, p.In, ErrUnsorted)
		}
		prev = p.In
	}
	return nil
}

// Value evaluates the curve at position.
func (c Curve) Value(position float64) float64 {
	if len(c.Points) == 0 {
		return position
	}

	x := math.Abs(position)
	sign := 1.0
	if position < 0 {
		sign = -1.0
	}

	// first point with In >= x
	i := sort.Search(len(c.Points), func(i int) bool { return c.Points[i].In >= x })
	if i == len(c.Points) {
		return sign * c.Points[len(c.Points)-1].Out
	}

	lo := Point{}
	if i > 0 {
		lo = c.Points[i-1]
	}
	hi := c.Points[i]
	t := (x - lo.In) / (hi.In - lo.In)
	return sign * (lo.Out + t*(hi.Out-lo.Out))
}

// MaxInput is the input past which the curve is flat (0 for identity).
func (c Curve) MaxInput() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	return c.Points[len(c.Points)-1].In
}
