// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/grootclient/cmd/grootctl/config"
	"github.com/AleutianAI/grootclient/pkg/logging"
	"github.com/AleutianAI/grootclient/services/groot/client"
	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// --- Application state ---

// app is shared by every command. Fields are filled in by the root
// command's PersistentPreRunE.
type app struct {
	// flag values
	configPath  string
	envFile     string
	addr        string
	gremlin     string
	username    string
	password    string
	jsonOut     bool
	logLevel    string
	metricsAddr string
	timeout     time.Duration

	cfg      config.Config
	logger   *logging.Logger
	metrics  *telemetry.Metrics
	shutdown func(context.Context) error
	server   *http.Server

	out io.Writer
	// isTerminal reports whether out is a terminal. Text output is used
	// only for terminals unless --json is given.
	isTerminal func() bool

	// dialOptions are extra client options, used by tests to dial an
	// in-memory server.
	dialOptions []client.Option
	conn        *client.Connection
}

func newApp() *app {
	return &app{
		out: os.Stdout,
		isTerminal: func() bool {
			fd := os.Stdout.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "grootctl",
		Short: "A command-line client for the Groot graph store",
		Long: `grootctl manages the schema of a Groot graph store, writes vertices and
edges, bulk-loads JSON-lines files, and runs Gremlin traversals.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default ~/.groot/grootctl.yaml)")
	f.StringVar(&a.envFile, "env-file", "", "dotenv file (default .env)")
	f.StringVar(&a.addr, "addr", "", "gRPC address of the Groot frontend")
	f.StringVar(&a.gremlin, "gremlin", "", "Gremlin endpoint (host:port or ws:// URL)")
	f.StringVar(&a.username, "username", "", "username for Basic auth")
	f.StringVar(&a.password, "password", "", "password for Basic auth")
	f.BoolVar(&a.jsonOut, "json", false, "print JSON even on a terminal")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.DurationVar(&a.timeout, "timeout", 0, "per-command timeout (default from config)")

	root.AddCommand(
		newClientIDCmd(a),
		newSchemaCmd(a),
		newEntityCmd(a, "vertex"),
		newEntityCmd(a, "edge"),
		newFlushCmd(a),
		newReplayCmd(a),
		newStateCmd(a),
		newCompactCmd(a),
		newReopenCmd(a),
		newGremlinCmd(a),
		newLoadCmd(a),
	)
	return root
}

// setup loads configuration, overlays flags, and starts logging and
// telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	overlay := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	overlay("addr", &cfg.Groot.Addr, a.addr)
	overlay("gremlin", &cfg.Groot.Gremlin, a.gremlin)
	overlay("username", &cfg.Groot.Username, a.username)
	overlay("password", &cfg.Groot.Password, a.password)
	overlay("log-level", &cfg.Logging.Level, a.logLevel)
	if flags.Changed("timeout") {
		cfg.Groot.Timeout = a.timeout
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "grootctl",
		JSON:    cfg.Logging.JSON,
	})

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	if cfg.Telemetry.MetricExporter != "none" && cfg.Telemetry.MetricExporter != "" {
		m, err := telemetry.DefaultMetrics()
		if err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		a.metrics = m
	}

	if a.metricsAddr != "" {
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serveMetrics() error {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		return errors.New("--metrics-addr needs the prometheus metric exporter")
	}
	lis, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.metricsAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log().Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	a.log().Info("serving metrics", slog.String("addr", lis.Addr().String()))
	return nil
}

// run executes the command line and always releases what setup acquired,
// including after a failed command.
func run(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.teardown())
}

func (a *app) teardown() error {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
		a.server = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}

// connect dials the store once per command.
func (a *app) connect(ctx context.Context) (*client.Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	// Only the gremlin command needs the traversal link.
	opts := append([]client.Option{client.WithMetrics(a.metrics), client.WithLazyGremlin()}, a.dialOptions...)
	conn, err := client.Dial(ctx, client.Config{
		Addr:            a.cfg.Groot.Addr,
		GremlinEndpoint: a.cfg.Groot.Gremlin,
		Username:        a.cfg.Groot.Username,
		Password:        a.cfg.Groot.Password,
		FlushTimeout:    a.cfg.Groot.FlushTimeout,
		ConnectTimeout:  a.cfg.Groot.ConnectTimeout,
		Logger:          a.log(),
	}, opts...)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	return conn, nil
}

// commandContext applies the configured timeout.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if a.cfg.Groot.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), a.cfg.Groot.Timeout)
}
