// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session ties one view's scene, selection engine, camera and
// search index together and feeds them user events.
//
// # Description
//
// A Session is the explicit context object for one open graph view. It
// owns everything that would otherwise be process-wide state: the current
// scene generation, the selection, the camera. Events go in through
// Handle; a Frame comes out.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Events are applied one at a
// time under a mutex, so a Frame is always computed in full before any
// caller sees it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/callscope/services/scope/camera"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/selection"
)

// Navigator receives go-to-definition requests. It is called with the
// session lock held and must not call back into the session.
type Navigator func(ctx context.Context, req NavigationRequest)

// Session is one interactive graph view.
type Session struct {
	mu sync.Mutex

	id         string
	generation uint64
	scene      *scene.Scene
	search     *search.Index
	engine     *selection.Engine
	camera     *camera.Camera

	workspaceRoot string
	autoCenter    bool
	navigator     Navigator
	logger        *slog.Logger

	createdAt  time.Time
	lastActive time.Time
}

type config struct {
	id            string
	generation    uint64
	camera        camera.Options
	viewport      scene.Size
	workspaceRoot string
	autoCenter    bool
	navigator     Navigator
	logger        *slog.Logger
}

// Option configures a Session.
type Option func(*config)

// WithID sets the session id. Defaults to a random UUID.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithGeneration sets the starting scene generation, so a session opened
// after several reloads reports the same generation as its owner. Zero
// keeps the default of 1.
func WithGeneration(gen uint64) Option {
	return func(c *config) { c.generation = gen }
}

// WithCamera sets the camera zoom range.
func WithCamera(opts camera.Options) Option {
	return func(c *config) { c.camera = opts }
}

// WithViewport sets the initial screen size.
func WithViewport(size scene.Size) Option {
	return func(c *config) { c.viewport = size }
}

// WithWorkspaceRoot sets the directory relative node paths resolve against.
func WithWorkspaceRoot(root string) Option {
	return func(c *config) { c.workspaceRoot = root }
}

// WithAutoCenter enables or disables moving the camera to a selection
// that is off screen. Enabled by default.
func WithAutoCenter(enabled bool) Option {
	return func(c *config) { c.autoCenter = enabled }
}

// WithNavigator sets the go-to-definition callback.
func WithNavigator(fn Navigator) Option {
	return func(c *config) { c.navigator = fn }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a session over a frozen scene.
//
// # Inputs
//
//   - sc: The scene. Must not be nil.
//   - opts: Optional configuration.
//
// # Outputs
//
//   - *Session: Idle, at generation 1 unless WithGeneration says
//     otherwise, camera at the identity transform.
func New(sc *scene.Scene, opts ...Option) *Session {
	cfg := config{
		camera:     camera.DefaultOptions(),
		autoCenter: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.generation == 0 {
		cfg.generation = 1
	}

	logger := cfg.logger.With(slog.String("session_id", cfg.id))
	now := time.Now()
	return &Session{
		id:            cfg.id,
		generation:    cfg.generation,
		scene:         sc,
		search:        search.Build(sc),
		engine:        selection.NewEngine(sc, sc.Index(), selection.WithLogger(logger)),
		camera:        camera.New(cfg.camera, cfg.viewport),
		workspaceRoot: cfg.workspaceRoot,
		autoCenter:    cfg.autoCenter,
		navigator:     cfg.navigator,
		logger:        logger,
		createdAt:     now,
		lastActive:    now,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActive returns when the session last handled an event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Generation returns the scene generation, bumped on every reload.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Scene returns the current scene.
func (s *Session) Scene() *scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// Frame returns the current frame without changing anything.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

// Handle applies one event and returns the resulting frame.
//
// # Description
//
// Pointer events are resolved against the scene, then routed to the
// selection engine or the camera. After a selection that produced a
// highlight, the camera centres on the selected element if it is off
// screen.
//
// # Outputs
//
//   - Frame: The frame after the event. On error, the unchanged frame.
//   - error: ErrUnknownEvent, ErrMissingPoint or ErrMissingViewport.
func (s *Session) Handle(ctx context.Context, ev Event) (Frame, error) {
	ctx, span := startEventSpan(ctx, s.id, ev.Type)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	var extra frameExtras
	err := s.applyLocked(ctx, ev, &extra)
	recordEvent(ctx, ev.Type, err == nil)
	if err != nil {
		span.RecordError(err)
		return s.frameLocked(), err
	}

	f := s.frameLocked()
	f.Centered = extra.centered
	f.Navigation = extra.navigation
	f.Matches = extra.matches
	return f, nil
}

// Select selects a target directly.
func (s *Session) Select(ctx context.Context, t selection.Target) Frame {
	f, _ := s.Handle(ctx, Event{Type: EventSelect, Target: &t})
	return f
}

// SelectChain resolves a pointer chain and selects the result.
func (s *Session) SelectChain(ctx context.Context, chain []string) Frame {
	f, _ := s.Handle(ctx, Event{Type: EventClick, Chain: chain})
	return f
}

// Clear clears the selection.
func (s *Session) Clear(ctx context.Context) Frame {
	f, _ := s.Handle(ctx, Event{Type: EventClear})
	return f
}

// Search selects the first match of q and returns all matches in the
// frame.
func (s *Session) Search(ctx context.Context, q string, kinds ...scene.CellKind) Frame {
	f, _ := s.Handle(ctx, Event{Type: EventSearch, Query: q, Kinds: kinds})
	return f
}

// Query runs a search without changing the selection.
func (s *Session) Query(q string, opts ...search.QueryOption) []search.Match {
	s.mu.Lock()
	idx := s.search
	s.mu.Unlock()
	return idx.Query(q, opts...)
}

// Reload swaps in a new scene.
//
// # Description
//
// The old scene and index are not touched. The new scene gets a fresh
// index and search index, the generation is bumped, and the previous
// selection is re-applied if its target still exists in the new scene.
// The camera is kept.
func (s *Session) Reload(ctx context.Context, sc *scene.Scene) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.engine.State().Target
	s.scene = sc
	s.search = search.Build(sc)
	s.engine.Reset(sc, sc.Index())
	if !previous.IsZero() {
		s.engine.Select(ctx, previous)
	}
	s.generation++
	s.lastActive = time.Now()

	s.logger.Info("scene reloaded",
		slog.Uint64("generation", s.generation),
		slog.Int("nodes", sc.Stats().Nodes),
		slog.Int("edges", sc.Stats().Edges),
	)
	recordReload(ctx, s.generation)
	return s.frameLocked()
}

type frameExtras struct {
	centered   bool
	navigation *NavigationRequest
	matches    []search.Match
}

func (s *Session) applyLocked(ctx context.Context, ev Event, extra *frameExtras) error {
	switch ev.Type {
	case EventClick:
		id, kind, ok := s.resolveLocked(ev)
		if !ok {
			return ErrMissingPoint
		}
		extra.centered = s.selectLocked(ctx, selection.Target{Kind: kind, ID: id})

	case EventSelect:
		var t selection.Target
		if ev.Target != nil {
			t = *ev.Target
		}
		extra.centered = s.selectLocked(ctx, t)

	case EventClear:
		s.engine.Clear(ctx)

	case EventDoubleClick:
		id, kind, ok := s.resolveLocked(ev)
		if !ok {
			return ErrMissingPoint
		}
		if req, found := s.navigationLocked(id, kind); found {
			extra.navigation = &req
			recordNavigation(ctx)
			if s.navigator != nil {
				s.navigator(ctx, req)
			}
			return nil
		}
		s.camera.Reset()

	case EventWheel:
		if ev.Point == nil {
			return ErrMissingPoint
		}
		s.camera.Wheel(*ev.Point, ev.DeltaY)

	case EventDragStart:
		if ev.Point == nil {
			return ErrMissingPoint
		}
		s.camera.BeginDrag(*ev.Point)

	case EventDragMove:
		if ev.Point == nil {
			return ErrMissingPoint
		}
		s.camera.DragTo(*ev.Point)

	case EventDragEnd:
		s.camera.EndDrag()

	case EventKey:
		s.keyLocked(ctx, ev.Key)

	case EventSearch:
		var opts []search.QueryOption
		if len(ev.Kinds) > 0 {
			opts = append(opts, search.WithKinds(ev.Kinds...))
		}
		extra.matches = s.search.Query(ev.Query, opts...)
		if len(extra.matches) == 0 {
			s.engine.Clear(ctx)
			return nil
		}
		first := extra.matches[0]
		extra.centered = s.selectLocked(ctx, selection.Target{Kind: first.Element, ID: first.ID})

	case EventResize:
		if ev.Viewport == nil {
			return ErrMissingViewport
		}
		s.camera.SetViewport(*ev.Viewport)

	case EventReset:
		s.camera.Reset()

	case EventZoomIn:
		s.camera.ZoomIn()

	case EventZoomOut:
		s.camera.ZoomOut()

	default:
		return fmt.Errorf("%q: %w", ev.Type, ErrUnknownEvent)
	}
	return nil
}

// resolveLocked finds the element a pointer event refers to. A chain wins
// over a point. ok is false when the event carries neither.
func (s *Session) resolveLocked(ev Event) (string, scene.ElementKind, bool) {
	if len(ev.Chain) > 0 {
		id, kind := s.scene.Resolve(ev.Chain)
		return id, kind, true
	}
	if ev.Point != nil {
		id, kind := s.scene.HitTest(s.camera.ScreenToGraph(*ev.Point))
		return id, kind, true
	}
	return "", scene.ElementNone, false
}

// selectLocked runs a selection and centres the camera on the result.
// Returns true when the camera moved.
func (s *Session) selectLocked(ctx context.Context, t selection.Target) bool {
	p := s.engine.Select(ctx, t)
	if p.IsIdle() || !s.autoCenter {
		return false
	}
	bounds, ok := s.scene.BoundsOf(t.Kind, t.ID)
	if !ok {
		return false
	}
	if s.camera.CenterOn(bounds) {
		recordAutoCenter(ctx)
		return true
	}
	return false
}

func (s *Session) keyLocked(ctx context.Context, key string) {
	switch key {
	case KeyEscape:
		s.engine.Clear(ctx)
	case KeyZoomIn, KeyZoomIn2:
		s.camera.ZoomIn()
	case KeyZoomOut:
		s.camera.ZoomOut()
	case KeyReset:
		s.camera.Reset()
	default:
		s.logger.Debug("ignoring key", slog.String("key", key))
	}
}

// navigationLocked builds a go-to-definition request for a node or cell.
// Elements without a source path produce no request.
func (s *Session) navigationLocked(id string, kind scene.ElementKind) (NavigationRequest, bool) {
	var req NavigationRequest
	switch kind {
	case scene.ElementNode:
		n, _ := s.scene.Node(id)
		req.Path = n.Path
	case scene.ElementCell:
		n, ok := s.scene.Node(scene.OwnerNode(id))
		if !ok {
			return req, false
		}
		req.Path = n.Path
		if c, ok := s.scene.Cell(id); ok && c.Position != nil {
			req.Line = c.Position.Line
			req.Character = c.Position.Character
		}
	default:
		return req, false
	}
	if req.Path == "" {
		return req, false
	}
	req.Path = s.resolvePath(req.Path)
	return req, true
}

// resolvePath joins a relative path onto the workspace root.
func (s *Session) resolvePath(p string) string {
	if s.workspaceRoot == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.workspaceRoot, p)
}

func (s *Session) frameLocked() Frame {
	cs := s.camera.State()
	return Frame{
		SessionID:  s.id,
		Generation: s.generation,
		State:      s.engine.State(),
		Partition:  s.engine.Partition(),
		Camera:     cs,
		Transform:  cs.Transform(),
	}
}
