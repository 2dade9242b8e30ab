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
	log.Println("starting headtrack (mock console)")

	if err := config.InitGlobal("headtrack_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunConsole(ctx, config.Get(), os.Stdout, 100*time.Millisecond); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
