// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package protocol holds the sinks that receive the tracker's output pose.
// Send is called from the tracker loop once per tick and never blocks on
// the network; failures are logged and the pose is dropped.
package protocol

import "github.com/relabs-tech/headtracker/internal/orientation"

// Sink receives one pose per tick.
type Sink interface {
	Send(p orientation.Pose)
}

// Discard drops every pose.
type Discard struct{}

func (Discard) Send(orientation.Pose) {}

// Fanout forwards every pose to each sink in order.
type Fanout []Sink

func (f Fanout) Send(p orientation.Pose) {
	for _, s := range f {
		s.Send(p)
	}
}

// logEvery reports whether the n-th failure should be logged: the first one
// and every 100th after it.
func logEvery(n uint64) bool {
	return n%100 == 1
}
