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
	"log/slog"
	"time"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// Engine is the selection state machine.
//
// # Description
//
// Holds the current selection of one view. Every Select recomputes the
// partition from scratch, so the previous highlight never leaks into the
// next one. Selecting an unknown id drops back to Idle.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Engine struct {
	scene   *scene.Scene
	index   *scene.Index
	state   State
	current Partition
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine in the Idle state.
//
// # Inputs
//
//   - sc: The frozen scene. Must not be nil.
//   - idx: Its adjacency index. When nil, sc.Index() is used.
func NewEngine(sc *scene.Scene, idx *scene.Index, opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset(sc, idx)
	return e
}

// Reset swaps in a new scene and returns to Idle. Used on reload.
func (e *Engine) Reset(sc *scene.Scene, idx *scene.Index) {
	if idx == nil {
		idx = sc.Index()
	}
	e.scene = sc
	e.index = idx
	e.state = State{Phase: PhaseIdle, Focus: sc.Focus()}
	e.current = Idle(sc)
}

// Select highlights the target and returns the new partition.
//
// # Description
//
// A zero target clears the selection. A target that does not match an
// element of its kind also clears it; this is not an error.
//
// # Inputs
//
//   - ctx: Carries the trace span. Must not be nil.
//   - t: The target.
//
// # Outputs
//
//   - Partition: The partition now in effect.
func (e *Engine) Select(ctx context.Context, t Target) Partition {
	start := time.Now()
	ctx, span := startSelectSpan(ctx, t)
	defer span.End()

	p := Compute(e.scene, e.index, t)
	if p.IsIdle() {
		if !t.IsZero() {
			e.logger.Debug("selection target not found, clearing",
				slog.String("kind", t.Kind.String()),
				slog.String("id", t.ID),
			)
		}
		e.state = State{Phase: PhaseIdle, Focus: e.scene.Focus()}
	} else {
		e.state = State{Phase: PhaseHighlighted, Target: t, Focus: e.scene.Focus()}
	}
	e.current = p

	setSelectSpanResult(span, p)
	recordSelectMetrics(ctx, t.Kind, time.Since(start), p)
	return p
}

// SelectID classifies id against the scene and selects it.
func (e *Engine) SelectID(ctx context.Context, id string) Partition {
	return e.Select(ctx, Target{Kind: e.scene.Kind(id), ID: id})
}

// Clear returns to Idle. Calling it repeatedly yields the same state.
func (e *Engine) Clear(ctx context.Context) Partition {
	return e.Select(ctx, Target{})
}

// State returns the current selection state.
func (e *Engine) State() State { return e.state }

// Partition returns the partition currently in effect.
func (e *Engine) Partition() Partition { return e.current }

// Scene returns the scene the engine works on.
func (e *Engine) Scene() *scene.Scene { return e.scene }
