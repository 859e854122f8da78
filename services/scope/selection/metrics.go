// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// Package-level tracer and meter for selection operations.
var (
	tracer = otel.Tracer("callscope.selection")
	meter  = otel.Meter("callscope.selection")
)

// Metrics for selection operations.
var (
	selectLatency metric.Float64Histogram
	selectTotal   metric.Int64Counter
	keptNodes     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		selectLatency, err = meter.Float64Histogram(
			"selection_duration_seconds",
			metric.WithDescription("Duration of selection partition computations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		selectTotal, err = meter.Int64Counter(
			"selection_total",
			metric.WithDescription("Total number of selections by element kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		keptNodes, err = meter.Int64Histogram(
			"selection_kept_nodes",
			metric.WithDescription("Number of nodes kept visible per selection"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordSelectMetrics records metrics for one selection.
func recordSelectMetrics(ctx context.Context, kind scene.ElementKind, duration time.Duration, p Partition) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Bool("idle", p.IsIdle()),
	)

	selectLatency.Record(ctx, duration.Seconds(), attrs)
	selectTotal.Add(ctx, 1, attrs)
	keptNodes.Record(ctx, int64(len(p.Kept.Nodes)))
}

// startSelectSpan creates a span for a selection.
func startSelectSpan(ctx context.Context, t Target) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Select",
		trace.WithAttributes(
			attribute.String("selection.kind", t.Kind.String()),
			attribute.String("selection.id", t.ID),
		),
	)
}

// setSelectSpanResult sets the result attributes on a selection span.
func setSelectSpanResult(span trace.Span, p Partition) {
	span.SetAttributes(
		attribute.Int("selection.kept_nodes", len(p.Kept.Nodes)),
		attribute.Int("selection.kept_edges", len(p.Kept.Edges)),
		attribute.Int("selection.faded_nodes", len(p.Faded.Nodes)),
		attribute.Bool("selection.idle", p.IsIdle()),
	)
}
