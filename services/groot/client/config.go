// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// DefaultFlushTimeout is how long RemoteFlush asks the server to wait.
const DefaultFlushTimeout = 3000 * time.Millisecond

// -----------------------------------------------------------------------------
// Client Configuration
// -----------------------------------------------------------------------------

// Config configures a Connection.
type Config struct {
	// Addr is the gRPC target of the Groot frontend (e.g., "localhost:55556").
	Addr string

	// GremlinEndpoint is the traversal endpoint, "host:port" or a ws:// URL.
	// Empty disables Gremlin.
	GremlinEndpoint string

	// Username and Password enable Basic auth when both are set.
	Username string
	Password string

	// FlushTimeout is the wait used by RemoteFlush when none is given.
	// Default: 3000ms
	FlushTimeout time.Duration

	// ConnectTimeout, when positive, makes Dial wait for the channel to be
	// ready. Zero leaves the channel to connect on first use.
	// Default: 0
	ConnectTimeout time.Duration

	// Logger for connection events.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns defaults for everything but the addresses.
func DefaultConfig() Config {
	return Config{
		FlushTimeout: DefaultFlushTimeout,
		Logger:       slog.Default(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.FlushTimeout < 0 {
		return errors.New("flush_timeout must be non-negative")
	}
	if c.ConnectTimeout < 0 {
		return errors.New("connect_timeout must be non-negative")
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.FlushTimeout == 0 {
		c.FlushTimeout = defaults.FlushTimeout
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type options struct {
	tls         *tls.Config
	metrics     *telemetry.Metrics
	dialOptions []grpc.DialOption
	lazyGremlin bool
}

// Option customizes Dial.
type Option func(*options)

// WithTLS dials with transport security instead of plaintext.
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) { o.tls = cfg }
}

// WithMetrics records RPC, write and traversal metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLazyGremlin defers opening the traversal link until the first
// traversal request, so Dial does not fail on an unreachable endpoint.
func WithLazyGremlin() Option {
	return func(o *options) { o.lazyGremlin = true }
}

// WithDialOptions appends raw gRPC dial options, e.g. a context dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// -----------------------------------------------------------------------------
// Channel policy
// -----------------------------------------------------------------------------

// serviceConfig retries DDL calls, and only DDL calls, on UNAVAILABLE.
const serviceConfig = `{
  "methodConfig": [
    {
      "name": [{"service": "gs.rpc.groot.GrootDdlService"}],
      "retryPolicy": {
        "maxAttempts": 5,
        "initialBackoff": "0.1s",
        "maxBackoff": "10s",
        "backoffMultiplier": 2,
        "retryableStatusCodes": ["UNAVAILABLE"]
      }
    }
  ]
}`

// ServiceConfig returns the channel service config installed by Dial.
func ServiceConfig() string {
	return serviceConfig
}

// EncodeMetadata returns the auth metadata for a principal and secret, or
// nil when either is empty.
func EncodeMetadata(username, password string) metadata.MD {
	if username == "" || password == "" {
		return nil
	}
	secret := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return metadata.Pairs("authorization", "Basic "+secret)
}
