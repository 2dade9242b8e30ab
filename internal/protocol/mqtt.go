// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"encoding/json"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each pose as JSON on a topic with QoS 0.
type MQTT struct {
	client Publisher
	topic  string

	errCount atomic.Uint64
}

func NewMQTT(client Publisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

func (m *MQTT) Send(p orientation.Pose) {
	payload, err := json.Marshal(p)
	if err != nil {
		m.fail(err)
		return
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	// Only look at tokens that already completed; waiting would tie the
	// loop to the broker round trip.
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			m.fail(err)
		}
	default:
	}
}

// Errors returns how many publishes failed so far.
func (m *MQTT) Errors() uint64 {
	return m.errCount.Load()
}

func (m *MQTT) fail(err error) {
	n := m.errCount.Add(1)
	if logEvery(n) {
		log.Printf("protocol: MQTT publish error (%s): %v (total errors: %d)", m.topic, err, n)
	}
}
