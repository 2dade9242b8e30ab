// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/headtracker/internal/app"
	"github.com/relabs-tech/headtracker/internal/config"
)

func main() {
	log.Println("starting headtrack MQTT producer (mock)")

	if err := config.InitGlobal("headtrack_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunProducer(ctx, config.Get(), 20*time.Millisecond); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
