// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry-based observability for the
// Groot client.
//
// OpenTelemetry is the abstraction layer. Components use the OTel APIs
// directly and backends are swapped through exporter configuration.
//
// # Traces
//
// Off by default for the CLI. "otlp" ships spans over gRPC to a collector;
// "stdout" writes them to stderr. UnaryClientInterceptor creates one client
// span per RPC and propagates W3C trace context in gRPC metadata.
//
// # Metrics
//
// Prometheus by default, on a private registry exposed by MetricsHandler.
// See Metrics for the instrument names.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(ctx)
//
//	metrics, _ := telemetry.DefaultMetrics()
//	conn, err := client.Dial(ctx, cfg, client.WithMetrics(metrics))
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - GROOT_ENV: environment name (default: development)
package telemetry
