// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/filter"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/tracker"
)

// RunConsole runs the tracker over the mock source and prints the
// measured and output poses every interval until ctx is done.
func RunConsole(ctx context.Context, cfg *config.Config, w io.Writer, interval time.Duration) error {
	flt, err := filter.New(cfg.Filter, filterOptions(cfg))
	if err != nil {
		return err
	}
	axes, err := curve.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	tr := tracker.New(tracker.Options{
		Primary: orientation.NewMockSource(),
		Filter:  flt,
		Axes:    axes,
		Period:  cfg.Period(),
	})
	tr.SetEnabled(cfg.TrackerEnabled)
	tr.SetCompensation(cfg.TrackerCompensate)
	if err := tr.Start(); err != nil {
		return err
	}
	defer tr.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := tr.Snapshot()
			printPose(w, "RAW", snap.Measured)
			printPose(w, "OUT", snap.Output)
			fmt.Fprintf(w, "       alt=%s\n", altFlags(snap.Axes))
		}
	}
}
