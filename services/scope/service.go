// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scope serves interactive call-graph views over HTTP.
//
// # Description
//
// The service holds the current scene and a registry of sessions, one per
// open view. Graph reloads fan out to every session. Sessions idle longer
// than the TTL are reaped. Frames are pushed to websocket subscribers
// after each reload.
//
// # Thread Safety
//
// Service is safe for concurrent use.
package scope

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/callscope/services/scope/camera"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/session"
	"github.com/AleutianAI/callscope/services/scope/telemetry"
)

// ServiceVersion is the scope service version.
const ServiceVersion = "0.1.0"

// reloadConcurrency bounds how many sessions are rebuilt at once.
const reloadConcurrency = 8

// ServiceConfig configures the scope service.
type ServiceConfig struct {
	// Camera is the zoom range of new sessions.
	Camera camera.Options

	// WorkspaceRoot resolves relative node paths for navigation.
	WorkspaceRoot string

	// AutoCenter is the default for new sessions.
	AutoCenter bool

	// SessionTTL reaps sessions idle for longer. Zero disables reaping.
	SessionTTL time.Duration

	// MaxSessions caps open sessions. Zero means unlimited.
	MaxSessions int

	// EventsPerSecond and EventBurst rate-limit each websocket.
	EventsPerSecond float64
	EventBurst      int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Camera:          camera.DefaultOptions(),
		AutoCenter:      true,
		SessionTTL:      30 * time.Minute,
		MaxSessions:     64,
		EventsPerSecond: 120,
		EventBurst:      240,
	}
}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*Service)

// WithMetrics records service metrics. Nil disables them.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNavigator sets the go-to-definition callback passed to every
// session.
func WithNavigator(fn session.Navigator) ServiceOption {
	return func(s *Service) { s.navigator = fn }
}

// Service is the scope service.
type Service struct {
	config    ServiceConfig
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	navigator session.Navigator

	mu         sync.RWMutex
	scene      *scene.Scene
	generation uint64
	sessions   map[string]*session.Session
	closed     bool

	subMu sync.Mutex
	subs  map[string]map[chan session.Frame]struct{}
}

// NewService creates a service.
//
// Inputs:
//
//	config - Service configuration.
//	sc - The initial scene. May be nil when the graph is not available
//	yet; sessions cannot be created until SetScene is called.
//	opts - Optional dependencies.
func NewService(config ServiceConfig, sc *scene.Scene, opts ...ServiceOption) *Service {
	s := &Service{
		config:   config,
		logger:   slog.Default(),
		sessions: make(map[string]*session.Session),
		subs:     make(map[string]map[chan session.Frame]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sc != nil {
		s.scene = sc
		s.generation = 1
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig { return s.config }

// Scene returns the current scene and its generation. The scene is nil
// before the first load.
func (s *Service) Scene() (*scene.Scene, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene, s.generation
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetScene installs a new scene and reloads every open session.
//
// # Description
//
// Sessions are reloaded concurrently, at most reloadConcurrency at a
// time. Each session keeps its camera and re-applies its selection when
// the target survives. Websocket subscribers receive the new frame.
//
// # Outputs
//
//   - error: ErrServiceClosed, or ctx's error if cancelled mid-reload.
func (s *Service) SetScene(ctx context.Context, sc *scene.Scene) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.scene = sc
	s.generation++
	gen := s.generation
	open := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	s.logger.Info("scene installed",
		slog.Uint64("generation", gen),
		slog.Int("sessions", len(open)),
		slog.Int("nodes", sc.Stats().Nodes),
		slog.Int("edges", sc.Stats().Edges),
	)
	if s.metrics != nil {
		s.metrics.GraphReloadsTotal.Add(ctx, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reloadConcurrency)
	for _, sess := range open {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := sess.Reload(gctx, sc)
			s.publish(sess.ID(), f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reload sessions: %w", err)
	}
	return nil
}

// CreateSession opens a new session over the current scene.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}
	if s.scene == nil {
		return nil, ErrNoScene
	}
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	camOpts := s.config.Camera
	if req.FitToWindow {
		camOpts = camera.FitToWindowOptions()
	}
	autoCenter := s.config.AutoCenter
	if req.AutoCenter != nil {
		autoCenter = *req.AutoCenter
	}
	opts := []session.Option{
		session.WithGeneration(s.generation),
		session.WithCamera(camOpts),
		session.WithWorkspaceRoot(s.config.WorkspaceRoot),
		session.WithAutoCenter(autoCenter),
		session.WithLogger(s.logger),
	}
	if req.Viewport != nil {
		opts = append(opts, session.WithViewport(*req.Viewport))
	}
	if s.navigator != nil {
		opts = append(opts, session.WithNavigator(s.navigator))
	}

	sess := session.New(s.scene, opts...)
	s.sessions[sess.ID()] = sess
	if s.metrics != nil {
		s.metrics.SessionsActive.Add(ctx, 1)
	}
	s.logger.Info("session created", slog.String("session_id", sess.ID()))
	return sess, nil
}

// Session returns an open session.
func (s *Service) Session(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// CloseSession closes a session and disconnects its subscribers.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	s.dropSubscribers(id)
	if s.metrics != nil {
		s.metrics.SessionsActive.Add(ctx, -1)
	}
	s.logger.Info("session closed", slog.String("session_id", id))
	return nil
}

// Reap closes sessions idle since before now minus the TTL and returns
// how many were closed.
func (s *Service) Reap(ctx context.Context, now time.Time) int {
	if s.config.SessionTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.config.SessionTTL)

	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if err := s.CloseSession(ctx, id); err == nil {
			n++
		}
	}
	if n > 0 {
		s.logger.Info("reaped idle sessions", slog.Int("count", n))
	}
	return n
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Reap(ctx, now)
		}
	}
}

// Close closes every session. Further calls fail with ErrServiceClosed.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()

	for _, id := range ids {
		s.dropSubscribers(id)
	}
	if s.metrics != nil && len(ids) > 0 {
		s.metrics.SessionsActive.Add(ctx, -int64(len(ids)))
	}
	return nil
}

// Subscribe returns a channel receiving frames pushed for a session, and
// a cancel func. The channel is closed when the session closes or cancel
// is called. Frames are dropped for slow subscribers.
func (s *Service) Subscribe(id string) (<-chan session.Frame, func(), error) {
	ch := make(chan session.Frame, 4)

	// Register while holding the read lock: CloseSession removes the
	// session under the write lock before dropping subscribers, so a
	// channel added here is always seen by that drop.
	s.mu.RLock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.RUnlock()
		return nil, nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	s.subMu.Lock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[chan session.Frame]struct{})
	}
	s.subs[id][ch] = struct{}{}
	s.subMu.Unlock()
	s.mu.RUnlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[id][ch]; ok {
				delete(s.subs[id], ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (s *Service) publish(id string, f session.Frame) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs[id] {
		select {
		case ch <- f:
		default:
			s.logger.Debug("dropping frame for slow subscriber", slog.String("session_id", id))
		}
	}
}

func (s *Service) dropSubscribers(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs[id] {
		close(ch)
	}
	delete(s.subs, id)
}
