// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gremlin is a small client for the Gremlin Server WebSocket
// protocol, as served by a Groot frontend next to its gRPC port.
//
// Scripts are sent as "eval" requests with GraphSON 3 untyped results.
// The connection is dialed on first use and redialed after a failure.
package gremlin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a traversal link.
type Config struct {
	// Endpoint is "host:port", or a full ws:// or wss:// URL.
	Endpoint string

	// TraversalSource is the server-side source bound to the alias "g".
	// Default: "g"
	TraversalSource string

	// Username and Password enable SASL PLAIN when both are set. The
	// password is moved into an encrypted enclave by NewClient and only
	// decrypted while an authentication frame is built.
	Username string
	Password string

	// HandshakeTimeout bounds the WebSocket handshake.
	// Default: 10s
	HandshakeTimeout time.Duration

	// Logger for link events.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *telemetry.Metrics
}

// DefaultConfig returns defaults for everything but Endpoint.
func DefaultConfig() Config {
	return Config{
		TraversalSource:  "g",
		HandshakeTimeout: 10 * time.Second,
		Logger:           slog.Default(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("gremlin endpoint must not be empty")
	}
	if c.HandshakeTimeout < 0 {
		return errors.New("handshake_timeout must be non-negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.TraversalSource == "" {
		c.TraversalSource = defaults.TraversalSource
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
}

// URL returns the WebSocket URL for an endpoint.
func URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint
	}
	return "ws://" + endpoint + "/gremlin"
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client is one traversal link.
//
// Thread Safety: Safe for concurrent use. Requests are serialized; one is
// in flight at a time.
type Client struct {
	config Config
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	// secret holds the SASL password; nil when auth is disabled.
	secret *memguard.Enclave

	mu   sync.Mutex
	conn *websocket.Conn
	// live mirrors conn so Close can interrupt a request holding mu.
	live   atomic.Pointer[websocket.Conn]
	closed atomic.Bool
}

// NewClient returns a client for cfg. No connection is made until the first
// request.
func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gremlin config: %w", err)
	}
	c := &Client{
		config: cfg,
		url:    URL(cfg.Endpoint),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: cfg.Logger.With(slog.String("component", "groot.gremlin")),
	}
	if cfg.Username != "" && cfg.Password != "" {
		// NewEnclave wipes the slice it is given.
		c.secret = memguard.NewEnclave([]byte(cfg.Password))
	}
	c.config.Password = ""
	return c, nil
}

// Connect dials the link now instead of on the first request. It is a
// no-op when the link is already open.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connLocked(ctx)
	return err
}

// URL returns the WebSocket URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// Traversal returns the traversal source bound to this link.
func (c *Client) Traversal() *Traversal {
	return &Traversal{client: c, source: c.config.TraversalSource}
}

// Submit evaluates script and returns the result items.
//
// Description:
//
//	Sends one eval request and reads responses until the server reports
//	completion. Partial (206) results are accumulated. A 407 challenge is
//	answered with SASL PLAIN on the same request id. The context deadline,
//	if any, bounds the whole exchange, and cancelling ctx aborts it.
//
// Inputs:
//
//	ctx - Bounds the request.
//	script - Gremlin-Groovy script using the alias "g".
//	bindings - Script parameters. May be nil.
//
// Outputs:
//
//	[]json.RawMessage - One element per result item, in server order.
//	error - *ServerError for a failure status, ErrAuthRequired, ErrClosed,
//	or a transport error.
func (c *Client) Submit(ctx context.Context, script string, bindings map[string]any) ([]json.RawMessage, error) {
	return c.submit(ctx, script, bindings, c.config.TraversalSource)
}

func (c *Client) submit(ctx context.Context, script string, bindings map[string]any, source string) (out []json.RawMessage, err error) {
	ctx, span := telemetry.StartSpan(ctx, "gremlin.Client.Submit")
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		c.config.Metrics.GremlinRequest(ctx, err)
		span.End()
	}()

	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connLocked(ctx)
	if err != nil {
		return nil, err
	}

	out, err = c.exchange(ctx, conn, evalRequest(uuid.NewString(), script, bindings, source))
	var serr *ServerError
	if err != nil && !errors.As(err, &serr) && !errors.Is(err, ErrAuthRequired) {
		// The stream is in an unknown state; start over next time.
		c.dropLocked()
	}
	if err != nil && c.closed.Load() {
		return nil, ErrClosed
	}
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return nil, ctxErr
	}
	return out, err
}

func (c *Client) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn
	c.live.Store(conn)
	// Close may have run while the handshake was in progress.
	if c.closed.Load() {
		c.dropLocked()
		return nil, ErrClosed
	}
	c.logger.Debug("gremlin link open", slog.String("url", c.url))
	return conn, nil
}

func (c *Client) dropLocked() {
	if c.conn == nil {
		return
	}
	c.live.CompareAndSwap(c.conn, nil)
	_ = c.conn.Close()
	c.conn = nil
}

func (c *Client) exchange(ctx context.Context, conn *websocket.Conn, req request) ([]json.RawMessage, error) {
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
		_ = conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := c.write(conn, req); err != nil {
		return nil, err
	}

	var out []json.RawMessage
	authenticated := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		var resp response
		if err := json.Unmarshal(msg, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if resp.RequestID != "" && resp.RequestID != req.RequestID {
			c.logger.Debug("skipping response for another request", slog.String("request_id", resp.RequestID))
			continue
		}

		switch resp.Status.Code {
		case StatusPartialContent:
			if out, err = appendData(out, resp.Result.Data); err != nil {
				return nil, err
			}
		case StatusSuccess:
			return appendData(out, resp.Result.Data)
		case StatusNoContent:
			return out, nil
		case StatusAuthenticate:
			if c.secret == nil {
				return nil, ErrAuthRequired
			}
			if authenticated {
				return nil, &ServerError{Code: resp.Status.Code, Message: "authentication rejected", RequestID: req.RequestID}
			}
			authenticated = true
			if err := c.authenticate(conn, req.RequestID); err != nil {
				return nil, err
			}
		default:
			return nil, &ServerError{Code: resp.Status.Code, Message: resp.Status.Message, RequestID: req.RequestID}
		}
	}
}

// authenticate answers a 407 challenge. The password is decrypted only for
// the duration of this call.
func (c *Client) authenticate(conn *websocket.Conn, requestID string) error {
	password, err := c.secret.Open()
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}
	defer password.Destroy()
	return c.write(conn, authRequest(requestID, c.config.Username, password.Bytes()))
}

func (c *Client) write(conn *websocket.Conn, req request) error {
	frame, err := encodeFrame(req)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("write %s request: %w", req.Op, err)
	}
	return nil
}

// Close closes the link. It is safe to call more than once, and it does not
// wait for an in-flight request: the socket is closed under it, and that
// request returns ErrClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	// WriteControl and Close may run concurrently with a reader.
	var err error
	if conn := c.live.Swap(nil); conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = conn.Close()
	}
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	return err
}

// -----------------------------------------------------------------------------
// Traversal
// -----------------------------------------------------------------------------

// Traversal is a traversal source on a remote graph. Scripts refer to it as
// "g".
type Traversal struct {
	client *Client
	source string
}

// Source returns the server-side traversal source name.
func (t *Traversal) Source() string {
	return t.source
}

// Submit evaluates script against this traversal source.
func (t *Traversal) Submit(ctx context.Context, script string, bindings map[string]any) ([]json.RawMessage, error) {
	return t.client.submit(ctx, script, bindings, t.source)
}

// Count returns the number of vertices with label, or all vertices when
// label is empty.
func (t *Traversal) Count(ctx context.Context, label string) (int64, error) {
	script, bindings := "g.V().count()", map[string]any(nil)
	if label != "" {
		script, bindings = "g.V().hasLabel(l).count()", map[string]any{"l": label}
	}
	items, err := t.Submit(ctx, script, bindings)
	if err != nil {
		return 0, err
	}
	if len(items) != 1 {
		return 0, fmt.Errorf("count: expected one result, got %d", len(items))
	}
	var n int64
	if err := json.Unmarshal(items[0], &n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
