// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/headtracker/internal/app"
	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/record"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "headtrack",
		Short: "6DOF head tracker",
		Long: `headtrack polls up to two pose sources at a fixed rate, centers,
filters and shapes the pose per axis, and sends it to UDP and MQTT sinks.
A web API on WEB_SERVER_PORT exposes the live pose and controls.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitGlobal(configPath); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "headtrack_config.txt", "KEY=VALUE config file")

	root.AddCommand(runCmd(), replayCmd(), sessionsCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var recordFlag bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tracker with the configured sources and sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *config.Get()
			if cmd.Flags().Changed("record") {
				cfg.RecordEnabled = recordFlag
			}
			log.Println("starting headtrack tracker")
			return app.RunTracker(cmd.Context(), &cfg)
		},
	}
	cmd.Flags().BoolVar(&recordFlag, "record", false, "record primary source samples (overrides RECORD_ENABLED)")
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <session>",
		Short: "Run the tracker over a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *config.Get()
			cfg.PrimarySource = config.SourceReplay
			cfg.SecondarySource = config.SourceNone
			cfg.ReplaySession = args[0]
			cfg.RecordEnabled = false
			log.Printf("starting headtrack replay of %s", args[0])
			return app.RunTracker(cmd.Context(), &cfg)
		},
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := record.NewStore(config.Get().RecordDB)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Sessions()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tSTARTED\tSAMPLES")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.Source, s.StartedAt.Local().Format(time.DateTime), s.Samples)
			}
			return w.Flush()
		},
	}
}
