// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("callscope.session")
	meter  = otel.Meter("callscope.session")
)

var (
	eventsTotal     metric.Int64Counter
	reloadsTotal    metric.Int64Counter
	autoCenterTotal metric.Int64Counter
	navigateTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		eventsTotal, err = meter.Int64Counter(
			"session_events_total",
			metric.WithDescription("Total number of user events handled, by type"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reloadsTotal, err = meter.Int64Counter(
			"session_reloads_total",
			metric.WithDescription("Total number of scene reloads"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		autoCenterTotal, err = meter.Int64Counter(
			"session_autocenter_total",
			metric.WithDescription("Times the camera moved to show a selection"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		navigateTotal, err = meter.Int64Counter(
			"session_navigation_total",
			metric.WithDescription("Total number of go-to-definition requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordEvent(ctx context.Context, eventType EventType, ok bool) {
	if err := initMetrics(); err != nil {
		return
	}
	eventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(eventType)),
		attribute.Bool("success", ok),
	))
}

func recordReload(ctx context.Context, generation uint64) {
	if err := initMetrics(); err != nil {
		return
	}
	reloadsTotal.Add(ctx, 1)
	trace.SpanFromContext(ctx).AddEvent("scene.reload",
		trace.WithAttributes(attribute.Int64("session.generation", int64(generation))),
	)
}

func recordAutoCenter(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	autoCenterTotal.Add(ctx, 1)
}

func recordNavigation(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	navigateTotal.Add(ctx, 1)
}

func startEventSpan(ctx context.Context, sessionID string, eventType EventType) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Session.Handle",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.event", string(eventType)),
		),
	)
}
