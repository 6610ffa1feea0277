// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command atomvis runs analysis pipelines on particle and mesh files
// from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel   string
	configFile string
	config     Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{config: DefaultConfig()}
	cmd := &cobra.Command{
		Use:           "atomvis",
		Short:         "atomvis runs particle analysis pipelines",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(opts.logLevel); err != nil {
				return err
			}
			if opts.configFile != "" {
				if err := LoadConfig(opts.configFile, &opts.config); err != nil {
					return err
				}
				slog.Debug("loaded config file", "path", opts.configFile)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "TOML or YAML config file")
	cmd.AddCommand(newSurfaceCmd(opts))
	cmd.AddCommand(newSliceCmd(opts))
	return cmd
}

func setupLogging(level string) error {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
	return nil
}
