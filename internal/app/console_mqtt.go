// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/orientation"
)

// connectMQTT connects a client and waits for the broker to accept it.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s (client %s)", broker, clientID)
	return client, nil
}

// printPose writes one console line for a pose tagged with label.
func printPose(w io.Writer, label string, p orientation.Pose) {
	fmt.Fprintf(w,
		"[%-4s] X=%7.2f Y=%7.2f Z=%7.2f  YAW=%7.2f PITCH=%7.2f ROLL=%7.2f\n",
		label,
		p[orientation.X], p[orientation.Y], p[orientation.Z],
		p[orientation.Yaw], p[orientation.Pitch], p[orientation.Roll],
	)
}

// poseHandler decodes JSON poses and prints them.
func poseHandler(w io.Writer, label string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: %s unmarshal error: %v", label, err)
			return
		}
		printPose(w, label, p)
	}
}

// RunConsoleMQTT prints the source and output pose topics until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, w io.Writer) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := []struct {
		topic string
		label string
	}{
		{cfg.TopicPoseSource, "SRC"},
		{cfg.TopicPoseOutput, "OUT"},
	}
	for _, t := range topics {
		token := client.Subscribe(t.topic, 0, poseHandler(w, t.label))
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("console: subscribe %s: %w", t.topic, token.Error())
		}
		log.Printf("console: subscribed to %s", t.topic)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}
