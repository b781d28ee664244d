// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cdrbill/lib/archive"
	"github.com/bureau-foundation/cdrbill/lib/audit"
	"github.com/bureau-foundation/cdrbill/lib/billing"
	"github.com/bureau-foundation/cdrbill/lib/cdr"
	"github.com/bureau-foundation/cdrbill/lib/config"
	"github.com/bureau-foundation/cdrbill/lib/identity"
	"github.com/bureau-foundation/cdrbill/lib/lineproto"
	"github.com/bureau-foundation/cdrbill/lib/process"
	"github.com/bureau-foundation/cdrbill/lib/report"
	"github.com/bureau-foundation/cdrbill/lib/service"
	"github.com/bureau-foundation/cdrbill/lib/session"
	"github.com/bureau-foundation/cdrbill/lib/version"
	"github.com/bureau-foundation/cdrbill/lib/workspace"
	"github.com/bureau-foundation/cdrbill/transport"
)

func runServe(args []string) error {
	var (
		configPath string
		logLevel   string
		listen     string
	)
	flagSet := pflag.NewFlagSet(binaryName+" serve", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding server.listen")
	if handled, err := parseFlags(flagSet, args); handled {
		return err
	}
	if flagSet.NArg() > 0 {
		return process.Usagef("unexpected argument: %s", flagSet.Arg(0))
	}

	level, err := service.ParseLevel(logLevel)
	if err != nil {
		return process.Usagef("%v", err)
	}
	logger := service.NewLogger(level)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Paths.CDRSource); err != nil {
		// Processing reports a missing source to each user; the
		// server still starts.
		logger.Warn("CDR source is not readable", "path", cfg.Paths.CDRSource, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := identity.OpenStore(ctx, identity.StoreConfig{
		Path:   cfg.Paths.Credentials,
		Logger: logger.With("component", "identity"),
	})
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer store.Close()

	var sink audit.Sink = audit.Discard
	if cfg.Paths.AuditLog != "" {
		fileSink, err := audit.OpenFile(cfg.Paths.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer fileSink.Close()
		sink = fileSink
	}

	coordinator, err := newCoordinator(cfg, logger)
	if err != nil {
		return err
	}

	batchDelay, err := cfg.Processing.BatchDelay()
	if err != nil {
		return err
	}
	idleTimeout, err := cfg.Server.IdleTimeoutDuration()
	if err != nil {
		return err
	}

	dependencies := &session.Dependencies{
		Identities: store,
		Workspaces: workspace.NewManager(cfg.Paths.Output),
		Processor:  coordinator,
		Reports: &report.Streamer{
			BatchLines: cfg.Processing.DisplayBatchLines,
			BatchDelay: batchDelay,
			Logger:     logger.With("component", "report"),
		},
		Source: cfg.Paths.CDRSource,
		Conn: lineproto.Options{
			MaxLineLength: cfg.Server.MaxLine,
			ChunkSize:     cfg.Processing.TransferChunkSize,
			WriteRetries:  cfg.Processing.WriteRetries,
		},
		Audit:  sink,
		Logger: logger,
	}

	listener, err := transport.NewTCPListener(cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}
	server := service.NewConnServer(listener, dependencies.Serve, logger)
	server.IdleTimeout = idleTimeout

	logger.Info("billing server running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"listen", listener.Address(),
		"source", cfg.Paths.CDRSource,
		"output", cfg.Paths.Output,
		"archive", cfg.Archive.Enabled,
	)

	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("billing server stopped")
	return nil
}

// newCoordinator builds the processing coordinator from the
// processing and archive sections.
func newCoordinator(cfg *config.Config, logger *slog.Logger) (*billing.Coordinator, error) {
	tagMatch, ok := cdr.ParseTagMatch(cfg.Processing.CustomerTagMatch)
	if !ok {
		return nil, fmt.Errorf("unknown customer tag match %q", cfg.Processing.CustomerTagMatch)
	}
	coordinator := &billing.Coordinator{
		Customer: &billing.CustomerEngine{
			TagMatch: tagMatch,
			Logger:   logger.With("pass", "customer"),
		},
		Operator: &billing.OperatorEngine{
			Logger: logger.With("pass", "operator"),
		},
		Logger: logger.With("component", "billing"),
	}
	if !cfg.Archive.Enabled {
		return coordinator, nil
	}

	compression, err := archive.ParseCompression(cfg.Archive.Compression)
	if err != nil {
		return nil, err
	}
	rotator, err := archive.NewRotator(archive.Options{
		Compression: compression,
		Recipients:  cfg.Archive.Recipients,
		Keep:        cfg.Archive.Keep,
		Logger:      logger.With("component", "archive"),
	})
	if err != nil {
		return nil, fmt.Errorf("configuring report archive: %w", err)
	}
	coordinator.Rotator = rotator
	return coordinator, nil
}
