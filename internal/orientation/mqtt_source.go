// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSource follows JSON poses published on a topic. A pose older than
// the staleness window is reported as not confident.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	last   *latest
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string, stale time.Duration) (*MQTTSource, error) {
	s := &MQTTSource{
		client: client,
		topic:  topic,
		last:   newLatest(stale),
	}

	token := client.Subscribe(topic, 0, s.handle)
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("mqtt source: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt source: subscribed to %s", topic)
	return s, nil
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	var p Pose
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		log.Printf("mqtt source: pose unmarshal error: %v", err)
		return
	}
	s.last.store(p)
}

func (s *MQTTSource) Poll() (Pose, bool) {
	return s.last.poll()
}

// Close drops the subscription; the client stays connected.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}
