// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package record

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

const (
	recorderBuffer = 1024
	flushBatch     = 128
	flushInterval  = 500 * time.Millisecond
)

// Recorder queues samples from the tracker loop and writes them to the
// store in batches from its own goroutine (Run).
type Recorder struct {
	store   *Store
	session Session
	start   time.Time

	ch      chan Sample
	seq     atomic.Int64
	dropped atomic.Uint64
}

// NewRecorder begins a new session named after the recorded source.
func NewRecorder(store *Store, source string) (*Recorder, error) {
	sess, err := store.BeginSession(source)
	if err != nil {
		return nil, err
	}
	log.Printf("record: session %s started (source=%s)", sess.ID, source)
	return &Recorder{
		store:   store,
		session: sess,
		start:   time.Now(),
		ch:      make(chan Sample, recorderBuffer),
	}, nil
}

func (r *Recorder) Session() Session {
	return r.session
}

// Record queues a pose without blocking. When the queue is full the sample
// is dropped.
func (r *Recorder) Record(p orientation.Pose) {
	smp := Sample{
		Seq:    r.seq.Add(1),
		Offset: time.Since(r.start),
		Pose:   p,
	}
	select {
	case r.ch <- smp:
	default:
		n := r.dropped.Add(1)
		if n%100 == 1 {
			log.Printf("record: queue full, dropped %d samples", n)
		}
	}
}

// Dropped returns how many samples did not fit in the queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued samples until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Sample, 0, flushBatch)
	flush := func() error {
		if err := r.store.AppendSamples(r.session.ID, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case smp := <-r.ch:
					batch = append(batch, smp)
				default:
					if err := flush(); err != nil {
						return err
					}
					log.Printf("record: session %s closed (%d samples, %d dropped)",
						r.session.ID, r.seq.Load(), r.Dropped())
					return nil
				}
			}
		case smp := <-r.ch:
			batch = append(batch, smp)
			if len(batch) >= flushBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

type tapSource struct {
	src orientation.Source
	rec *Recorder
}

// Tap records every confident sample src produces.
func Tap(src orientation.Source, rec *Recorder) orientation.Source {
	return &tapSource{src: src, rec: rec}
}

func (t *tapSource) Poll() (orientation.Pose, bool) {
	p, ok := t.src.Poll()
	if ok {
		t.rec.Record(p)
	}
	return p, ok
}
