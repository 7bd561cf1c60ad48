// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package client connects to a Groot graph store.
//
// A Connection owns one gRPC channel to the store frontend and, optionally,
// a Gremlin traversal link. It exposes schema submission, batch writes,
// flush and replay, and the administrative calls. A Graph is a write facade
// over a Connection bound to one schema snapshot.
//
// RPC errors are returned exactly as the channel produced them, so
// status.Code(err) reports the server's code. The only retries are the
// channel's declarative policy for the DDL service.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/AleutianAI/grootclient/services/groot/gremlin"
	"github.com/AleutianAI/grootclient/services/groot/grootpb"
	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrConnectionClosed is returned for calls made after Close.
	ErrConnectionClosed = errors.New("groot connection is closed")

	// ErrGremlinDisabled is returned when no Gremlin endpoint is configured.
	ErrGremlinDisabled = errors.New("gremlin endpoint not configured")

	// ErrNotReady is returned when ConnectTimeout elapses before the channel
	// is ready.
	ErrNotReady = errors.New("groot channel not ready")
)

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is a session with one Groot frontend.
//
// Thread Safety: Safe for concurrent use.
type Connection struct {
	config   Config
	conn     *grpc.ClientConn
	ddl      grootpb.DdlServiceClient
	write    grootpb.WriteServiceClient
	admin    grootpb.ClientServiceClient
	gremlin  *gremlin.Client
	metadata metadata.MD
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	idMu     sync.RWMutex
	clientID string
	idGroup  singleflight.Group

	closed atomic.Bool
}

// Dial creates a Connection.
//
// Description:
//
//	Builds the gRPC channel with the DDL retry policy, the auth and
//	telemetry interceptors and the wire codec, then creates the three
//	service stubs. When a Gremlin endpoint is configured the traversal
//	link is opened here too, so a bad endpoint fails Dial; WithLazyGremlin
//	defers that to the first traversal. The gRPC channel itself connects in
//	the background unless Config.ConnectTimeout is set.
//
// Inputs:
//
//	ctx - Bounds the Gremlin handshake and the readiness wait.
//	cfg - Connection configuration. Zero fields take DefaultConfig values.
//	opts - Optional TLS, metrics and extra dial options.
//
// Outputs:
//
//	*Connection - The connection. Call Close when done.
//	error - Non-nil if the configuration is invalid or the channel cannot
//	be created.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Connection, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Connection{
		config:   cfg,
		metadata: EncodeMetadata(cfg.Username, cfg.Password),
		metrics:  o.metrics,
		logger:   cfg.Logger.With(slog.String("component", "groot.client")),
	}

	creds := insecure.NewCredentials()
	if o.tls != nil {
		creds = credentials.NewTLS(o.tls)
	}
	interceptors := []grpc.UnaryClientInterceptor{telemetry.UnaryClientInterceptor(o.metrics)}
	if c.metadata != nil {
		interceptors = append(interceptors, authInterceptor(c.metadata))
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(serviceConfig),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(grootpb.Codec{})),
		grpc.WithChainUnaryInterceptor(interceptors...),
	}, o.dialOptions...)

	conn, err := grpc.NewClient(cfg.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create channel to %s: %w", cfg.Addr, err)
	}
	c.conn = conn
	c.ddl = grootpb.NewDdlServiceClient(conn)
	c.write = grootpb.NewWriteServiceClient(conn)
	c.admin = grootpb.NewClientServiceClient(conn)

	if cfg.GremlinEndpoint != "" {
		gc, err := gremlin.NewClient(gremlin.Config{
			Endpoint: cfg.GremlinEndpoint,
			Username: cfg.Username,
			Password: cfg.Password,
			Logger:   cfg.Logger,
			Metrics:  o.metrics,
		})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		c.gremlin = gc
		if !o.lazyGremlin {
			if err := gc.Connect(ctx); err != nil {
				c.Close()
				return nil, fmt.Errorf("open gremlin link: %w", err)
			}
		}
	}
	// Auth is captured in c.metadata and the gremlin enclave.
	c.config.Password = ""

	if cfg.ConnectTimeout > 0 {
		if err := c.waitReady(ctx, cfg.ConnectTimeout); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.logger.Info("groot connection created",
		slog.String("addr", cfg.Addr),
		slog.String("gremlin", cfg.GremlinEndpoint),
		slog.Bool("auth_enabled", c.metadata != nil),
		slog.Bool("tls", o.tls != nil),
	)
	return c, nil
}

func (c *Connection) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.conn.Connect()
	for {
		state := c.conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !c.conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("%w: %s after %s", ErrNotReady, state, timeout)
		}
	}
}

// authInterceptor attaches md to every outgoing call.
func authInterceptor(md metadata.MD) grpc.UnaryClientInterceptor {
	kv := make([]string, 0, 2*md.Len())
	for k, vs := range md {
		for _, v := range vs {
			kv = append(kv, k, v)
		}
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(metadata.AppendToOutgoingContext(ctx, kv...), method, req, reply, cc, opts...)
	}
}

func (c *Connection) check() error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return nil
}

// -----------------------------------------------------------------------------
// DDL
// -----------------------------------------------------------------------------

// Submit sends a batch of schema operations.
func (c *Connection) Submit(ctx context.Context, req *grootpb.BatchSubmitRequest) (*grootpb.BatchSubmitResponse, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.ddl.BatchSubmit(ctx, req)
}

// GetGraphDef fetches the current schema snapshot.
func (c *Connection) GetGraphDef(ctx context.Context) (*grootpb.GraphDef, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	resp, err := c.ddl.GetGraphDef(ctx, &grootpb.GetGraphDefRequest{})
	if err != nil {
		return nil, err
	}
	return resp.GraphDef, nil
}

// G fetches the current schema and returns a Graph bound to c.
func (c *Connection) G(ctx context.Context) (*Graph, error) {
	def, err := c.GetGraphDef(ctx)
	if err != nil {
		return nil, err
	}
	return NewGraph(def, c).withLogger(c.config.Logger), nil
}

// Gremlin returns the traversal source of the Gremlin link.
func (c *Connection) Gremlin() (*gremlin.Traversal, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.gremlin == nil {
		return nil, ErrGremlinDisabled
	}
	return c.gremlin.Traversal(), nil
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// ClientID returns the id the write service issued to this connection.
//
// Description:
//
//	The id is fetched on the first call and cached for the lifetime of the
//	connection. Concurrent first calls share a single round trip. A failed
//	fetch is not cached, so the next call tries again.
//
// Thread Safety: Safe for concurrent use.
func (c *Connection) ClientID(ctx context.Context) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	c.idMu.RLock()
	id := c.clientID
	c.idMu.RUnlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := c.idGroup.Do("client_id", func() (any, error) {
		c.idMu.RLock()
		cached := c.clientID
		c.idMu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		resp, err := c.write.GetClientID(ctx, &grootpb.GetClientIDRequest{})
		c.metrics.ClientIDFetched(ctx, err)
		if err != nil {
			return "", err
		}

		c.idMu.Lock()
		c.clientID = resp.ClientID
		c.idMu.Unlock()
		c.logger.Debug("client id assigned", slog.String("client_id", resp.ClientID))
		return resp.ClientID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ResetClientID forgets the cached client id. The next write fetches a
// new one.
func (c *Connection) ResetClientID() {
	c.idMu.Lock()
	c.clientID = ""
	c.idMu.Unlock()
}

// BatchWrite stamps req with the client id, sends it, and returns the
// snapshot id assigned to the batch. req itself is not modified.
func (c *Connection) BatchWrite(ctx context.Context, req *grootpb.BatchWriteRequest) (int64, error) {
	id, err := c.ClientID(ctx)
	if err != nil {
		return 0, err
	}
	if req == nil {
		req = &grootpb.BatchWriteRequest{}
	}
	stamped := &grootpb.BatchWriteRequest{ClientID: id, WriteRequests: req.WriteRequests}

	resp, err := c.write.BatchWrite(ctx, stamped)
	if err != nil {
		return 0, err
	}
	if c.metrics != nil {
		counts := make(map[grootpb.WriteType]int)
		for _, wr := range req.WriteRequests {
			counts[wr.WriteType]++
		}
		for wt, n := range counts {
			c.metrics.AddWriteEntries(ctx, wt.String(), n)
		}
	}
	return resp.SnapshotID, nil
}

// RemoteFlush waits until snapshotID is visible, for at most timeout.
// A timeout of zero uses Config.FlushTimeout; other values are sent in whole
// milliseconds, rounded up. It reports false, with no error, when the
// server gave up waiting.
func (c *Connection) RemoteFlush(ctx context.Context, snapshotID int64, timeout time.Duration) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	if timeout <= 0 {
		timeout = c.config.FlushTimeout
	}
	resp, err := c.write.RemoteFlush(ctx, &grootpb.RemoteFlushRequest{
		SnapshotID: snapshotID,
		WaitTimeMs: waitMillis(timeout),
	})
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ReplayRecords re-drives the write log from offset and timestamp through
// the write service, returning the snapshot id reached.
func (c *Connection) ReplayRecords(ctx context.Context, offset, timestamp int64) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	resp, err := c.write.ReplayRecords(ctx, &grootpb.ReplayRecordsRequest{Offset: offset, Timestamp: timestamp})
	if err != nil {
		return 0, err
	}
	return resp.SnapshotID, nil
}

// ReplayRecordsV2 is ReplayRecords through the administrative service.
func (c *Connection) ReplayRecordsV2(ctx context.Context, offset, timestamp int64) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	resp, err := c.admin.ReplayRecordsV2(ctx, &grootpb.ReplayRecordsRequestV2{Offset: offset, Timestamp: timestamp})
	if err != nil {
		return 0, err
	}
	return resp.SnapshotID, nil
}

// -----------------------------------------------------------------------------
// Administration
// -----------------------------------------------------------------------------

// StoreState returns the storage state of every partition, keyed by
// partition id.
func (c *Connection) StoreState(ctx context.Context) (map[int32]*grootpb.PartitionState, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	resp, err := c.admin.GetStoreState(ctx, &grootpb.GetStoreStateRequest{})
	if err != nil {
		return nil, err
	}
	return resp.PartitionStates, nil
}

// CompactDB asks the store to compact and reports its acknowledgement.
func (c *Connection) CompactDB(ctx context.Context) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	resp, err := c.admin.CompactDB(ctx, &grootpb.CompactDBRequest{})
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ReopenSecondary asks secondary instances to catch up with the primary.
func (c *Connection) ReopenSecondary(ctx context.Context) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	resp, err := c.admin.ReopenSecondary(ctx, &grootpb.ReopenSecondaryRequest{})
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// waitMillis converts a positive timeout to milliseconds, rounding up so a
// sub-millisecond wait is not sent as zero.
func waitMillis(d time.Duration) int64 {
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}

// -----------------------------------------------------------------------------
// Teardown
// -----------------------------------------------------------------------------

// Close releases the Gremlin link and the channel. Failures are logged and
// dropped. Calling Close more than once is a no-op.
func (c *Connection) Close() {
	if c.closed.Swap(true) {
		return
	}
	if c.gremlin != nil {
		if err := c.gremlin.Close(); err != nil {
			c.logger.Warn("closing gremlin link", slog.String("error", err.Error()))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("closing channel", slog.String("error", err.Error()))
		}
	}
	c.logger.Debug("groot connection closed")
}
