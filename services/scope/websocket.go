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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/callscope/services/scope/session"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadLimit    = 64 * 1024
)

// WSMessage is one server-to-client websocket message.
type WSMessage struct {
	// Type is "frame" or "error".
	Type string `json:"type"`

	// Frame is set for "frame" messages.
	Frame *session.Frame `json:"frame,omitempty"`

	// Error is set for "error" messages.
	Error *ErrorResponse `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     sameHostOrigin,
}

// sameHostOrigin accepts requests without an Origin header and those
// whose origin host matches the request host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// wsConn serialises writes to one websocket.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) sendFrame(f session.Frame) error {
	return c.send(WSMessage{Type: "frame", Frame: &f})
}

func (c *wsConn) sendError(resp ErrorResponse) error {
	return c.send(WSMessage{Type: "error", Error: &resp})
}

// HandleWebSocket handles GET /v1/scope/sessions/:id/ws.
//
// Description:
//
//	Upgrades to a websocket. The current frame is sent on connect. Each
//	client message is a session.Event; the reply is the resulting frame.
//	Frames produced by graph reloads are pushed unprompted. Events beyond
//	the per-connection rate limit are answered with a RATE_LIMITED error
//	and not applied.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	frames, cancel, err := h.svc.Subscribe(sess.ID())
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Failed to upgrade websocket", "session_id", sess.ID(), "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(wsReadLimit)

	ctx, stop := context.WithCancel(c.Request.Context())
	defer stop()

	metrics := h.svc.metrics
	if metrics != nil {
		metrics.WebsocketConnections.Add(ctx, 1)
		defer metrics.WebsocketConnections.Add(context.Background(), -1)
	}
	logger := slog.With("session_id", sess.ID(), "handler", "HandleWebSocket")
	logger.Info("Websocket client connected")

	conn := &wsConn{ws: ws}
	if err := conn.sendFrame(sess.Frame()); err != nil {
		return
	}

	// Pushed frames from reloads.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					// Session closed.
					_ = conn.sendError(ErrorResponse{Error: ErrSessionNotFound.Error(), Code: "SESSION_CLOSED"})
					stop()
					_ = ws.Close()
					return
				}
				if err := conn.sendFrame(f); err != nil {
					stop()
					return
				}
			}
		}
	}()

	cfg := h.svc.Config()
	limiter := rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.EventBurst)
	if cfg.EventsPerSecond <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	for {
		var ev session.Event
		if err := ws.ReadJSON(&ev); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || ctx.Err() != nil {
				logger.Info("Websocket client disconnected")
			} else {
				logger.Warn("Websocket read failed", "error", err)
			}
			return
		}

		if !limiter.Allow() {
			if metrics != nil {
				metrics.WebsocketRateLimited.Add(ctx, 1)
			}
			if err := conn.sendError(ErrorResponse{Error: "event rate exceeded", Code: "RATE_LIMITED"}); err != nil {
				return
			}
			continue
		}

		err := validateEvent(ev)
		var f session.Frame
		if err == nil {
			f, err = sess.Handle(ctx, ev)
		}
		if err != nil {
			if werr := conn.sendError(ErrorResponse{Error: err.Error(), Code: "INVALID_EVENT"}); werr != nil {
				return
			}
			continue
		}
		if err := conn.sendFrame(f); err != nil {
			return
		}
	}
}
