// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package record

import (
	"sync"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// ReplaySource plays a recorded session back, one sample per Poll.
// Once the session is exhausted it reports not confident.
type ReplaySource struct {
	mu      sync.Mutex
	samples []Sample
	next    int
}

func NewReplaySource(store *Store, sessionID string) (*ReplaySource, error) {
	samples, err := store.Samples(sessionID)
	if err != nil {
		return nil, err
	}
	return &ReplaySource{samples: samples}, nil
}

func (r *ReplaySource) Poll() (orientation.Pose, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.samples) {
		return orientation.Pose{}, false
	}
	p := r.samples[r.next].Pose
	r.next++
	return p, true
}

// Done reports whether every sample has been played.
func (r *ReplaySource) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next >= len(r.samples)
}

func (r *ReplaySource) Len() int {
	return len(r.samples)
}
