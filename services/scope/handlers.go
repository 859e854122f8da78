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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callscope/pkg/validation"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/selection"
	"github.com/AleutianAI/callscope/services/scope/session"
	"github.com/AleutianAI/callscope/services/scope/telemetry"
)

// Handlers contains the HTTP handlers for the scope service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/scope/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/scope/ready.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true)
//	503 Service Unavailable: ReadyResponse (Ready=false) until a graph loads
func (h *Handlers) HandleReady(c *gin.Context) {
	sc, gen := h.svc.Scene()
	resp := ReadyResponse{
		Ready:      sc != nil,
		Generation: gen,
		Sessions:   h.svc.SessionCount(),
	}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// HandleScene handles GET /v1/scope/scene.
//
// Response:
//
//	200 OK: SceneResponse
//	503 Service Unavailable: No graph loaded
func (h *Handlers) HandleScene(c *gin.Context) {
	sc, gen := h.svc.Scene()
	if sc == nil {
		writeError(c, ErrNoScene)
		return
	}
	c.JSON(http.StatusOK, SceneResponse{
		Generation: gen,
		Focus:      sc.Focus(),
		Stats:      sc.Stats(),
	})
}

// HandleCreateSession handles POST /v1/scope/sessions.
//
// Description:
//
//	Opens a session over the current scene. The body is optional.
//
// Response:
//
//	201 Created: SessionResponse
//	400 Bad Request: Malformed body
//	429 Too Many Requests: Session cap reached
//	503 Service Unavailable: No graph loaded
func (h *Handlers) HandleCreateSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSession")

	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid request body",
				Code:    "INVALID_REQUEST",
				Details: err.Error(),
			})
			return
		}
	}

	sess, err := h.svc.CreateSession(c.Request.Context(), req)
	if err != nil {
		logger.Warn("Create session failed", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(sess))
}

// HandleGetSession handles GET /v1/scope/sessions/:id.
func (h *Handlers) HandleGetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// HandleDeleteSession handles DELETE /v1/scope/sessions/:id.
//
// Response:
//
//	204 No Content
//	404 Not Found
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	if err := h.svc.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleEvent handles POST /v1/scope/sessions/:id/events.
//
// Description:
//
//	Applies one user event and returns the resulting frame.
//
// Request Body:
//
//	session.Event
//
// Response:
//
//	200 OK: session.Frame
//	400 Bad Request: Malformed or incomplete event
//	404 Not Found: Unknown session
func (h *Handlers) HandleEvent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvent")

	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var ev session.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	if err := validateEvent(ev); err != nil {
		logger.Warn("Invalid event", "type", ev.Type, "error", err)
		writeError(c, err)
		return
	}

	f, err := sess.Handle(c.Request.Context(), ev)
	if err != nil {
		logger.Debug("Event rejected", "type", ev.Type, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// HandleSelect handles POST /v1/scope/sessions/:id/select.
//
// Request Body:
//
//	SelectRequest
//
// Response:
//
//	200 OK: session.Frame. An id not in the scene yields the idle frame.
//	400 Bad Request: Missing or invalid kind or id
func (h *Handlers) HandleSelect(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}
	kind, known := scene.ParseElementKind(req.Kind)
	if !known || kind == scene.ElementNone {
		writeError(c, ErrInvalidTarget)
		return
	}
	if err := validation.ValidateElementID(req.ID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Select(c.Request.Context(), selection.Target{Kind: kind, ID: req.ID}))
}

// HandleClear handles POST /v1/scope/sessions/:id/clear.
func (h *Handlers) HandleClear(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Clear(c.Request.Context()))
}

// HandleSearch handles GET /v1/scope/sessions/:id/search.
//
// Description:
//
//	Lists matches without changing the selection. Send a "search" event
//	to select the first match.
//
// Query Parameters:
//
//	q - Substring to find (required)
//	kind - Cell kind filter, repeatable (optional)
//	limit - Maximum matches (optional)
//	case_sensitive - "true" for exact case (optional)
//
// Response:
//
//	200 OK: SearchResponse
//	400 Bad Request: Missing q, bad kind or bad limit
func (h *Handlers) HandleSearch(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	q, err := validation.SanitizeQuery(c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	if q == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "q parameter required",
			Code:  "MISSING_QUERY",
		})
		return
	}

	var opts []search.QueryOption
	if names := c.QueryArray("kind"); len(names) > 0 {
		kinds := make([]scene.CellKind, 0, len(names))
		for _, name := range names {
			k, err := scene.ParseCellKind(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{
					Error:   "invalid kind",
					Code:    "INVALID_KIND",
					Details: err.Error(),
				})
				return
			}
			kinds = append(kinds, k)
		}
		opts = append(opts, search.WithKinds(kinds...))
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		opts = append(opts, search.WithLimit(n))
	}
	if c.Query("case_sensitive") == "true" {
		opts = append(opts, search.WithCaseSensitive())
	}

	matches := sess.Query(q, opts...)
	if matches == nil {
		matches = []search.Match{}
	}
	c.JSON(http.StatusOK, SearchResponse{Query: q, Matches: matches})
}

// lookup resolves the :id parameter, writing a 404 when unknown.
func (h *Handlers) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sess, true
}

func sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		ID:         sess.ID(),
		CreatedAt:  sess.CreatedAt(),
		LastActive: sess.LastActive(),
		Frame:      sess.Frame(),
	}
}

// validateEvent rejects client strings that must not reach the session.
func validateEvent(ev session.Event) error {
	if err := validation.ValidateChain(ev.Chain); err != nil {
		return err
	}
	if ev.Target != nil && ev.Target.ID != "" {
		if err := validation.ValidateElementID(ev.Target.ID); err != nil {
			return err
		}
	}
	return validation.ValidateQuery(ev.Query)
}

// writeError maps service and session errors to status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case errors.Is(err, ErrSessionNotFound):
		status, code = http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, ErrTooManySessions):
		status, code = http.StatusTooManyRequests, "TOO_MANY_SESSIONS"
	case errors.Is(err, ErrNoScene):
		status, code = http.StatusServiceUnavailable, "NO_GRAPH"
	case errors.Is(err, ErrServiceClosed):
		status, code = http.StatusServiceUnavailable, "SHUTTING_DOWN"
	case errors.Is(err, ErrInvalidTarget):
		status, code = http.StatusBadRequest, "INVALID_TARGET"
	case errors.Is(err, validation.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, session.ErrUnknownEvent):
		status, code = http.StatusBadRequest, "UNKNOWN_EVENT"
	case errors.Is(err, session.ErrMissingPoint):
		status, code = http.StatusBadRequest, "MISSING_POINT"
	case errors.Is(err, session.ErrMissingViewport):
		status, code = http.StatusBadRequest, "MISSING_VIEWPORT"
	}

	if status >= http.StatusInternalServerError {
		telemetry.RecordError(trace.SpanFromContext(c.Request.Context()), err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// getOrCreateRequestID gets the request ID from header or creates one.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
