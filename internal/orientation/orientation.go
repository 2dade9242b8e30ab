// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Axis indexes one degree of freedom of a Pose.
type Axis int

const (
	X Axis = iota
	Y
	Z
	Yaw
	Pitch
	Roll
)

// NumAxes is the number of degrees of freedom in a Pose.
const NumAxes = 6

var axisNames = [NumAxes]string{"x", "y", "z", "yaw", "pitch", "roll"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// Valid reports whether a names one of the six axes.
func (a Axis) Valid() bool {
	return a >= 0 && int(a) < NumAxes
}

// ParseAxis accepts an axis name ("yaw") or index ("3").
func ParseAxis(s string) (Axis, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range axisNames {
		if s == name || s == fmt.Sprint(i) {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Pose is the canonical 6DOF head pose: translation in centimeters
// followed by yaw/pitch/roll in degrees.
type Pose [NumAxes]float64

// Sub returns the elementwise difference p - o.
func (p Pose) Sub(o Pose) Pose {
	var out Pose
	for i := range p {
		out[i] = p[i] - o[i]
	}
	return out
}

// Translation returns the x, y, z components.
func (p Pose) Translation() (x, y, z float64) {
	return p[X], p[Y], p[Z]
}

// Rotation returns the yaw, pitch, roll components in degrees.
func (p Pose) Rotation() (yaw, pitch, roll float64) {
	return p[Yaw], p[Pitch], p[Roll]
}

type poseJSON struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{p[X], p[Y], p[Z], p[Yaw], p[Pitch], p[Roll]})
}

func (p *Pose) UnmarshalJSON(b []byte) error {
	var v poseJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Pose{v.X, v.Y, v.Z, v.Yaw, v.Pitch, v.Roll}
	return nil
}

// Source is anything that can provide poses over time. Poll is called once
// per tracker tick and must not block; ok is false when the sample should
// be ignored for this tick.
type Source interface {
	Poll() (p Pose, ok bool)
}

// NoSource never reports a confident sample.
type NoSource struct{}

func (NoSource) Poll() (Pose, bool) { return Pose{}, false }

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Translation and yaw are left at 0.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	var p Pose
	p[Roll] = rollRad * 180.0 / math.Pi
	p[Pitch] = pitchRad * 180.0 / math.Pi
	return p
}
