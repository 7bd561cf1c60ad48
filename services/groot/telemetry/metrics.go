// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc/codes"
)

// Metrics contains the instruments recorded by the Groot client.
//
// Description:
//
//	Counters and histograms for RPCs, written entries, client id fetches,
//	traversal requests and loader batches. All names use the "groot_"
//	prefix. Every method is safe on a nil *Metrics, so components can take
//	an optional Metrics without guarding each call.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// RPCRequestsTotal counts RPCs by method and status code.
	RPCRequestsTotal metric.Int64Counter

	// RPCDuration records RPC latency in seconds by method.
	RPCDuration metric.Float64Histogram

	// WriteEntriesTotal counts write requests sent, by operation.
	WriteEntriesTotal metric.Int64Counter

	// ClientIDFetchesTotal counts getClientId round trips by outcome.
	ClientIDFetchesTotal metric.Int64Counter

	// GremlinRequestsTotal counts traversal requests by outcome.
	GremlinRequestsTotal metric.Int64Counter

	// LoaderBatchesTotal counts bulk-load batches by outcome.
	LoaderBatchesTotal metric.Int64Counter
}

// NewMetrics registers all instruments with meter.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//
// Outputs:
//
//	*Metrics - The initialized instruments.
//	error - Non-nil if any registration fails.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter(telemetry.TracerName))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RPCRequestsTotal, err = meter.Int64Counter(
		"groot_rpc_requests_total",
		metric.WithDescription("Total RPCs sent to the Groot frontend"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rpc_requests_total: %w", err)
	}

	m.RPCDuration, err = meter.Float64Histogram(
		"groot_rpc_duration_seconds",
		metric.WithDescription("RPC latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create rpc_duration: %w", err)
	}

	m.WriteEntriesTotal, err = meter.Int64Counter(
		"groot_write_entries_total",
		metric.WithDescription("Total write requests sent in batch writes"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create write_entries_total: %w", err)
	}

	m.ClientIDFetchesTotal, err = meter.Int64Counter(
		"groot_client_id_fetches_total",
		metric.WithDescription("Total client id fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create client_id_fetches_total: %w", err)
	}

	m.GremlinRequestsTotal, err = meter.Int64Counter(
		"groot_gremlin_requests_total",
		metric.WithDescription("Total traversal requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gremlin_requests_total: %w", err)
	}

	m.LoaderBatchesTotal, err = meter.Int64Counter(
		"groot_loader_batches_total",
		metric.WithDescription("Total bulk-load batches"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create loader_batches_total: %w", err)
	}

	return m, nil
}

// DefaultMetrics registers instruments on the global meter provider.
func DefaultMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(TracerName))
}

// RecordRPC records one finished RPC.
func (m *Metrics) RecordRPC(ctx context.Context, method string, code codes.Code, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("code", code.String()),
	))
	m.RPCDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// AddWriteEntries counts n entries sent with op.
func (m *Metrics) AddWriteEntries(ctx context.Context, op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.WriteEntriesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("op", op)))
}

// ClientIDFetched counts one client id round trip.
func (m *Metrics) ClientIDFetched(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.ClientIDFetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

// GremlinRequest counts one traversal request.
func (m *Metrics) GremlinRequest(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.GremlinRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

// LoaderBatch counts one bulk-load batch.
func (m *Metrics) LoaderBatch(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.LoaderBatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
