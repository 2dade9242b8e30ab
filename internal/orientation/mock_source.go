// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that
// generates smooth changing values and is always confident.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Poll() (Pose, bool) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Pose{
		X:     3 * math.Sin(elapsed*0.5),
		Y:     2 * math.Cos(elapsed*0.3),
		Z:     1.5 * math.Sin(elapsed*0.2),
		Yaw:   40 * math.Sin(elapsed*0.4),
		Pitch: 15 * math.Cos(elapsed*0.7),
		Roll:  20 * math.Sin(elapsed),
	}, true
}
