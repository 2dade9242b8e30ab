// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync"
	"time"
)

// latest holds the most recent pose pushed by an asynchronous reader
// (MQTT callback, serial goroutine) for a tracker to poll.
type latest struct {
	mu    sync.Mutex
	pose  Pose
	at    time.Time
	stale time.Duration
	now   func() time.Time
}

func newLatest(stale time.Duration) *latest {
	return &latest{stale: stale, now: time.Now}
}

func (l *latest) store(p Pose) {
	l.mu.Lock()
	l.pose = p
	l.at = l.now()
	l.mu.Unlock()
}

// poll reports the stored pose, confident only if it is fresh.
func (l *latest) poll() (Pose, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.at.IsZero() {
		return Pose{}, false
	}
	return l.pose, l.now().Sub(l.at) <= l.stale
}
