// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracker runs the head-pose pipeline: it fuses samples from up to
// two sources, applies centering, filtering, per-axis response curves and
// rotation compensation, and hands the result to a protocol sink.
package tracker

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/headtracker/internal/compensate"
	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/filter"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/protocol"
)

// DefaultPeriod is the tick period, ~66 Hz.
const DefaultPeriod = 15 * time.Millisecond

// heartbeatTicks is how often the loop logs a status line (~15 s).
const heartbeatTicks = 1000

var (
	ErrAlreadyStarted = errors.New("tracker: already started")
	ErrInvalidAxis    = errors.New("tracker: invalid axis")
)

// State is the lifecycle of the loop goroutine.
type State int

const (
	Idle State = iota
	Running
	Stopping
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options wires the collaborators. Nil collaborators are replaced by
// orientation.NoSource, filter.Passthrough and protocol.Discard, so the
// loop never checks for nil. Sources are polled once per tick and must
// not block.
type Options struct {
	Primary   orientation.Source
	Secondary orientation.Source
	Filter    filter.Filter
	Protocol  protocol.Sink
	Axes      curve.Axes
	Period    time.Duration
}

// Tracker polls up to two sources at a fixed rate and turns their fused
// pose into a centered, filtered, curve-shaped and compensated output.
// Every field below mu is guarded by it.
type Tracker struct {
	primary   orientation.Source
	secondary orientation.Source
	filter    filter.Filter
	protocol  protocol.Sink
	period    time.Duration

	mu    sync.Mutex
	state State
	axes  curve.Axes

	measured orientation.Pose // latest fused raw sample
	target   orientation.Pose // latest sample accepted while enabled
	offset   orientation.Pose // target captured at the last centering
	relative orientation.Pose // target - offset, frozen while disabled
	output   orientation.Pose // fully processed result

	centerRequested bool
	enabled         bool
	compensate      bool
	shouldStop      bool

	done  chan struct{}
	ticks uint64
}

// New creates an idle tracker with tracking and compensation enabled.
func New(opts Options) *Tracker {
	t := &Tracker{
		primary:    opts.Primary,
		secondary:  opts.Secondary,
		filter:     opts.Filter,
		protocol:   opts.Protocol,
		period:     opts.Period,
		axes:       opts.Axes,
		enabled:    true,
		compensate: true,
	}
	if t.primary == nil {
		t.primary = orientation.NoSource{}
	}
	if t.secondary == nil {
		t.secondary = orientation.NoSource{}
	}
	if t.filter == nil {
		t.filter = filter.Passthrough{}
	}
	if t.protocol == nil {
		t.protocol = protocol.Discard{}
	}
	if t.period <= 0 {
		t.period = DefaultPeriod
	}
	for i := range t.axes {
		t.axes[i].ClearActive()
	}
	return t
}

// Start launches the loop goroutine. A tracker runs at most once.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle {
		return ErrAlreadyStarted
	}
	t.state = Running
	t.done = make(chan struct{})
	go t.run(t.done)

	log.Printf("tracker: started (%.0fHz)", 1/t.period.Seconds())
	return nil
}

// Stop asks the loop to exit and waits until it has, at which point every
// axis reports no active curve. Stop on an idle or terminated tracker
// returns immediately.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.state != Running && t.state != Stopping {
		t.mu.Unlock()
		return
	}
	t.shouldStop = true
	done := t.done
	t.mu.Unlock()

	<-done
}

func (t *Tracker) run(done chan struct{}) {
	defer close(done)

	for t.tick() {
		time.Sleep(t.period)
	}

	t.mu.Lock()
	for i := range t.axes {
		t.axes[i].ClearActive()
	}
	t.state = Terminated
	ticks := t.ticks
	t.mu.Unlock()

	log.Printf("tracker: stopped after %d ticks", ticks)
}

// tick runs one pipeline iteration. It returns false once a stop has
// been requested.
func (t *Tracker) tick() bool {
	t.mu.Lock()
	if t.shouldStop {
		t.state = Stopping
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	// Secondary first so the primary's sample wins when both are confident.
	secondary, secondaryOK := t.secondary.Poll()
	primary, primaryOK := t.primary.Poll()

	t.mu.Lock()
	out := t.step(primary, primaryOK, secondary, secondaryOK)
	t.ticks++
	ticks := t.ticks
	t.mu.Unlock()

	t.protocol.Send(out)

	if ticks%heartbeatTicks == 0 {
		log.Printf("tracker: %d ticks, output x=%.2f y=%.2f z=%.2f yaw=%.2f pitch=%.2f roll=%.2f",
			ticks, out[orientation.X], out[orientation.Y], out[orientation.Z],
			out[orientation.Yaw], out[orientation.Pitch], out[orientation.Roll])
	}
	return true
}

// step fuses, centers, filters, shapes and compensates. Caller holds mu.
func (t *Tracker) step(primary orientation.Pose, primaryOK bool, secondary orientation.Pose, secondaryOK bool) orientation.Pose {
	confident := primaryOK || secondaryOK
	switch {
	case primaryOK:
		t.measured = primary
	case secondaryOK:
		t.measured = secondary
	}

	if t.centerRequested {
		t.offset = t.target
		t.centerRequested = false
		t.filter.Reset()
	}

	if t.enabled && confident {
		t.target = t.measured
		t.relative = t.target.Sub(t.offset)
	}

	filtered := t.filter.Apply(t.relative, t.output)

	var curved orientation.Pose
	for i := range filtered {
		v, branch := t.axes[i].Map(filtered[i])
		t.axes[i].MarkActive(branch)
		curved[i] = v
	}

	if t.compensate {
		curved = compensate.Pose(curved)
	}

	t.output = curved
	return curved
}

// RequestCenter makes the current pose the new zero on the next tick.
// Requests made between two ticks collapse into one.
func (t *Tracker) RequestCenter() {
	t.mu.Lock()
	t.centerRequested = true
	t.mu.Unlock()
}

// SetEnabled pauses or resumes following the sources. While paused the
// last relative pose keeps flowing through the filter and curves.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// SetCompensation toggles rotating translation into the head frame.
func (t *Tracker) SetCompensation(enabled bool) {
	t.mu.Lock()
	t.compensate = enabled
	t.mu.Unlock()
}

// SetAxisInvert flips the output sign of one axis.
func (t *Tracker) SetAxisInvert(axis orientation.Axis, invert bool) error {
	if !axis.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
	}
	t.mu.Lock()
	t.axes[axis].Inverted = invert
	t.mu.Unlock()
	return nil
}

// SetAxisZero sets the bias added to one axis after its curve.
func (t *Tracker) SetAxisZero(axis orientation.Axis, zero float64) error {
	if !axis.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
	}
	t.mu.Lock()
	t.axes[axis].Zero = zero
	t.mu.Unlock()
	return nil
}

// SetAxis replaces the configuration of one axis, keeping its branch flags.
func (t *Tracker) SetAxis(axis orientation.Axis, a curve.Axis) error {
	if !axis.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
	}
	if err := a.Curve.Validate(); err != nil {
		return fmt.Errorf("tracker: %s curve: %w", axis, err)
	}
	if err := a.CurveAlt.Validate(); err != nil {
		return fmt.Errorf("tracker: %s curve_alt: %w", axis, err)
	}

	t.mu.Lock()
	a.CurveActive = t.axes[axis].CurveActive
	a.CurveAltActive = t.axes[axis].CurveAltActive
	t.axes[axis] = a
	t.mu.Unlock()
	return nil
}

// MeasuredPose returns the latest fused sample before centering and filtering.
func (t *Tracker) MeasuredPose() orientation.Pose {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.measured
}

// OutputPose returns the latest fully processed pose.
func (t *Tracker) OutputPose() orientation.Pose {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}

// Axes returns a snapshot of every axis including its branch flags.
func (t *Tracker) Axes() curve.Axes {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.axes
}

func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Tracker) Compensation() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compensate
}

// Snapshot is a copy of the tracker state taken under a single lock, so
// both poses come from the same tick.
type Snapshot struct {
	Measured     orientation.Pose
	Output       orientation.Pose
	Axes         curve.Axes
	Enabled      bool
	Compensation bool
	State        State
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Measured:     t.measured,
		Output:       t.output,
		Axes:         t.axes,
		Enabled:      t.enabled,
		Compensation: t.compensate,
		State:        t.state,
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
