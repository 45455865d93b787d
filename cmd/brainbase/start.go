// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brainbase-dev/brainbase/internal/config"
	"github.com/brainbase-dev/brainbase/internal/server"
	"github.com/brainbase-dev/brainbase/internal/ssot"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the brainbase server",
		Long:  "Load configuration, open the graph database, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	log := newLogger(cfg.Log.Level)
	slog.SetDefault(log)

	graph, err := sqlite.NewGraphStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer graph.Close() //nolint:errcheck

	var access server.AccessProvider = server.DenyAllAccessProvider{}
	if cfg.Auth.AllowInsecureHeaders {
		log.Warn("trusting x-brainbase-* identity headers; only safe behind an authenticating proxy")
		access = server.HeaderAccessProvider{}
	}

	svc := ssot.New(graph, log)
	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}, svc, access, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting brainbase", "listen", cfg.Server.Listen, "db", cfg.Storage.Path)
	return srv.Start(ctx)
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}
