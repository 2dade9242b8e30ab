// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/filter"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/protocol"
	"github.com/relabs-tech/headtracker/internal/record"
	"github.com/relabs-tech/headtracker/internal/tracker"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// pipeline builds the tracker collaborators from config and owns the
// resources behind them.
type pipeline struct {
	cfg     *config.Config
	client  mqtt.Client
	store   *record.Store
	replay  *record.ReplaySource
	closers []io.Closer
}

func (p *pipeline) onClose(c io.Closer) {
	p.closers = append(p.closers, c)
}

// close releases resources in reverse order of acquisition.
func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			log.Printf("tracker: close: %v", err)
		}
	}
	p.closers = nil
}

func (p *pipeline) source(name string) (orientation.Source, error) {
	cfg := p.cfg
	switch name {
	case "", config.SourceNone:
		return orientation.NoSource{}, nil
	case config.SourceMock:
		return orientation.NewMockSource(), nil
	case config.SourceIMU:
		return orientation.NewIMUSource(orientation.IMUOptions{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			GyroRange:  cfg.IMUGyroRange,
		})
	case config.SourceMQTT:
		s, err := orientation.NewMQTTSource(p.client, cfg.TopicPoseSource, cfg.SourceStale())
		if err != nil {
			return nil, err
		}
		p.onClose(s)
		return s, nil
	case config.SourceSerial:
		s, err := orientation.NewSerialSource(cfg.SerialPort, uint(cfg.SerialBaudRate), cfg.SourceStale())
		if err != nil {
			return nil, err
		}
		p.onClose(s)
		return s, nil
	case config.SourceReplay:
		s, err := record.NewReplaySource(p.store, cfg.ReplaySession)
		if err != nil {
			return nil, err
		}
		log.Printf("replay: session %s, %d samples", cfg.ReplaySession, s.Len())
		p.replay = s
		return s, nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

func (p *pipeline) protocols() (protocol.Sink, error) {
	var out protocol.Fanout
	for _, name := range p.cfg.Protocols {
		switch name {
		case config.ProtocolMQTT:
			out = append(out, protocol.NewMQTT(p.client, p.cfg.TopicPoseOutput))
		case config.ProtocolUDP:
			u, err := protocol.NewUDP(p.cfg.UDPAddr)
			if err != nil {
				return nil, err
			}
			p.onClose(u)
			out = append(out, u)
		default:
			return nil, fmt.Errorf("unknown protocol %q", name)
		}
	}
	if len(out) == 0 {
		return protocol.Discard{}, nil
	}
	return out, nil
}

func filterOptions(cfg *config.Config) filter.Options {
	return filter.Options{
		EWMASmoothing: cfg.FilterEWMASmoothing,
		EWMAWarmUp:    cfg.FilterEWMAWarmUp,
		KalmanQ:       cfg.FilterKalmanQ,
		KalmanR:       cfg.FilterKalmanR,
	}
}

// RunTracker runs the tracker and its web UI, display, recorder and
// replay watcher until ctx is done, one of them fails, or a replayed
// session ends.
func RunTracker(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	axes, err := curve.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	p := &pipeline{cfg: cfg}
	defer p.close()

	if cfg.UsesSource(config.SourceMQTT) || cfg.UsesProtocol(config.ProtocolMQTT) {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker)
		if err != nil {
			return err
		}
		p.client = client
		p.onClose(closerFunc(func() error {
			client.Disconnect(250)
			return nil
		}))
	}

	if cfg.RecordEnabled || cfg.UsesSource(config.SourceReplay) {
		store, err := record.NewStore(cfg.RecordDB)
		if err != nil {
			return err
		}
		p.store = store
		p.onClose(store)
	}

	primary, err := p.source(cfg.PrimarySource)
	if err != nil {
		return fmt.Errorf("primary source: %w", err)
	}
	secondary, err := p.source(cfg.SecondarySource)
	if err != nil {
		return fmt.Errorf("secondary source: %w", err)
	}

	flt, err := filter.New(cfg.Filter, filterOptions(cfg))
	if err != nil {
		return err
	}

	sink, err := p.protocols()
	if err != nil {
		return err
	}

	// The session row is written last so a failed setup leaves none behind.
	var rec *record.Recorder
	if cfg.RecordEnabled {
		if rec, err = record.NewRecorder(p.store, cfg.PrimarySource); err != nil {
			return err
		}
		primary = record.Tap(primary, rec)
	}

	tr := tracker.New(tracker.Options{
		Primary:   primary,
		Secondary: secondary,
		Filter:    flt,
		Protocol:  sink,
		Axes:      axes,
		Period:    cfg.Period(),
	})
	tr.SetEnabled(cfg.TrackerEnabled)
	tr.SetCompensation(cfg.TrackerCompensate)

	log.Printf("tracker: primary=%s secondary=%s filter=%s protocols=[%s]",
		cfg.PrimarySource, cfg.SecondarySource, cfg.Filter, strings.Join(cfg.Protocols, ","))

	if err := tr.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// The recorder drains only after the loop has stopped feeding it.
	recCtx, recCancel := context.WithCancel(context.Background())
	defer recCancel()

	g.Go(func() error {
		<-gctx.Done()
		tr.Stop()
		recCancel()
		return nil
	})

	g.Go(func() error {
		return RunWeb(gctx, tr, cfg)
	})

	if cfg.DisplayEnabled {
		g.Go(func() error {
			return RunDisplay(gctx, tr, cfg)
		})
	}

	if rec != nil {
		g.Go(func() error {
			return rec.Run(recCtx)
		})
	}

	if p.replay != nil {
		g.Go(func() error {
			return watchReplay(gctx, p.replay, cancel)
		})
	}

	return g.Wait()
}

// watchReplay calls done once every recorded sample has been played.
func watchReplay(ctx context.Context, r *record.ReplaySource, done func()) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if r.Done() {
				log.Printf("replay: finished (%d samples)", r.Len())
				done()
				return nil
			}
		}
	}
}
