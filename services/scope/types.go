// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"time"

	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/session"
)

// HealthResponse is the response for GET /v1/scope/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/scope/ready.
type ReadyResponse struct {
	// Ready is true once a graph document is loaded.
	Ready bool `json:"ready"`

	// Generation counts scene loads, starting at 1.
	Generation uint64 `json:"generation"`

	// Sessions is the number of open sessions.
	Sessions int `json:"sessions"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

// SceneResponse is the response for GET /v1/scope/scene.
type SceneResponse struct {
	Generation uint64           `json:"generation"`
	Focus      string           `json:"focus,omitempty"`
	Stats      scene.BuildStats `json:"stats"`
}

// CreateSessionRequest is the body of POST /v1/scope/sessions.
type CreateSessionRequest struct {
	// Viewport is the initial screen size. Optional.
	Viewport *scene.Size `json:"viewport,omitempty"`

	// AutoCenter overrides the server default. Optional.
	AutoCenter *bool `json:"auto_center,omitempty"`

	// FitToWindow uses the fit-to-window zoom range instead of the
	// configured one.
	FitToWindow bool `json:"fit_to_window,omitempty"`
}

// SessionResponse describes a session and its current frame.
type SessionResponse struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	LastActive time.Time     `json:"last_active"`
	Frame      session.Frame `json:"frame"`
}

// SelectRequest is the body of POST /v1/scope/sessions/:id/select.
type SelectRequest struct {
	// Kind is "node", "cell", "edge" or "cluster".
	Kind string `json:"kind" binding:"required,oneof=node cell edge cluster"`

	// ID is the element id.
	ID string `json:"id" binding:"required"`
}

// SearchResponse is the response for GET /v1/scope/sessions/:id/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Matches []search.Match `json:"matches"`
}
