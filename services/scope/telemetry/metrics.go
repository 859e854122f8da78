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
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service-level instruments of the callscope server.
//
// Description:
//
//	HTTP request counters, session and websocket gauges, and graph reload
//	counts. Engine-level instruments (selection latency, session events)
//	live in their own packages. All names use the "callscope_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks in-flight HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// SessionsActive tracks open sessions.
	SessionsActive metric.Int64UpDownCounter

	// WebsocketConnections tracks open websocket connections.
	WebsocketConnections metric.Int64UpDownCounter

	// WebsocketRateLimited counts events dropped by the per-connection limiter.
	WebsocketRateLimited metric.Int64Counter

	// GraphReloadsTotal counts graph document reloads by outcome.
	GraphReloadsTotal metric.Int64Counter
}

// NewMetrics registers all instruments with the meter.
//
// Inputs:
//
//	meter - The OTel meter, typically otel.Meter("callscope").
//
// Outputs:
//
//	*Metrics - All instruments initialized.
//	error - Non-nil if any registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"callscope_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"callscope_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration_seconds: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"callscope_http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.SessionsActive, err = meter.Int64UpDownCounter(
		"callscope_sessions_active",
		metric.WithDescription("Number of open viewer sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sessions_active: %w", err)
	}

	m.WebsocketConnections, err = meter.Int64UpDownCounter(
		"callscope_websocket_connections",
		metric.WithDescription("Number of open websocket connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("create websocket_connections: %w", err)
	}

	m.WebsocketRateLimited, err = meter.Int64Counter(
		"callscope_websocket_rate_limited_total",
		metric.WithDescription("Websocket events rejected by the rate limiter"),
	)
	if err != nil {
		return nil, fmt.Errorf("create websocket_rate_limited_total: %w", err)
	}

	m.GraphReloadsTotal, err = meter.Int64Counter(
		"callscope_graph_reloads_total",
		metric.WithDescription("Total graph document reloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("create graph_reloads_total: %w", err)
	}

	return m, nil
}
