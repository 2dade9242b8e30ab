// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/protocol"
)

// RunProducer publishes mock poses on TopicPoseSource every interval, for
// feeding a tracker configured with the mqtt source.
func RunProducer(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	src := orientation.NewMockSource()
	sink := protocol.NewMQTT(client, cfg.TopicPoseSource)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("producer: publishing mock poses to %s every %s", cfg.TopicPoseSource, interval)

	var n uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopped after %d poses (%d publish errors)", n, sink.Errors())
			return nil
		case t := <-ticker.C:
			pose, ok := src.Poll()
			if !ok {
				continue
			}
			sink.Send(pose)
			n++
			if n%100 == 0 {
				payload, _ := json.Marshal(pose)
				log.Printf("%s published pose #%d: %s", t.Format(time.RFC3339), n, payload)
			}
		}
	}
}
