// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// forgebridge is a stdio JSON-RPC server that bridges agent tool
// calls to an issue tracker and a wiki. It reads newline-delimited
// JSON-RPC 2.0 requests on stdin, invokes the corresponding backend
// REST operation, and writes one JSON-RPC response line per request
// on stdout. All diagnostics go to stderr; stdout carries protocol
// frames only.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/forgebridge/forgebridge/lib/config"
	"github.com/forgebridge/forgebridge/lib/process"
	"github.com/forgebridge/forgebridge/lib/rpc"
	"github.com/forgebridge/forgebridge/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var logLevel string

	flagSet := pflag.NewFlagSet("forgebridge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to forgebridge.yaml (default: $FORGEBRIDGE_CONFIG)")
	flagSet.StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("forgebridge %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		// Configuration failures exit with a distinct code so service
		// supervisors can tell misconfiguration from runtime faults.
		process.FatalConfig(err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			process.FatalConfig(err)
		}
	}

	// Structured logs go to stderr: stdout is the protocol stream and
	// must carry nothing but response frames.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		process.FatalConfig(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "version", version.Short(), "tools", len(registry.Tools()))

	server := rpc.NewServer(registry, logger)
	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		// Graceful shutdown on SIGINT/SIGTERM: in-flight work is
		// abandoned, no further frames are written.
		logger.Info("shutting down on signal")
		return nil
	case err := <-errs:
		return err
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
