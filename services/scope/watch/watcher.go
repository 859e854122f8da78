// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reloads a graph document when it changes on disk.
//
// # Description
//
// The upstream indexer rewrites the graph document whenever the code it
// describes changes. GraphWatcher notices those writes, waits for the
// burst to settle, decodes the document into a fresh scene and hands it to
// a callback. A document that fails to decode or build is logged and
// skipped; the previous scene stays live.
//
// # Thread Safety
//
// The reload callback is always called from a single goroutine.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// DefaultDebounce is the default quiet period before a reload.
const DefaultDebounce = 200 * time.Millisecond

var (
	// ErrAlreadyStarted is returned by Start on a running or stopped watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNilReload is returned by New without a reload callback.
	ErrNilReload = errors.New("reload callback is nil")
)

// ReloadFunc receives each successfully rebuilt scene.
type ReloadFunc func(ctx context.Context, sc *scene.Scene)

// Options configures a GraphWatcher.
type Options struct {
	// Debounce is how long to wait after the last change before reloading.
	// Default: DefaultDebounce.
	Debounce time.Duration

	// Logger receives reload and error logs. Default: slog.Default().
	Logger *slog.Logger
}

// GraphWatcher watches one graph document.
//
// # Description
//
// The parent directory is watched rather than the file itself, because
// editors and indexers commonly replace files by rename, which drops an
// inode watch. Events for other files in that directory are ignored.
type GraphWatcher struct {
	path     string
	base     string
	watcher  *fsnotify.Watcher
	onReload ReloadFunc
	debounce time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	running bool
	reloads int
	fails   int
}

// New creates a watcher for the graph document at path.
//
// # Inputs
//
//   - path: The graph document. Its directory must exist.
//   - onReload: Called with every rebuilt scene. Must not be nil.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *GraphWatcher: Ready to Start.
//   - error: Non-nil if the path cannot be made absolute or fsnotify fails.
func New(path string, onReload ReloadFunc, opts *Options) (*GraphWatcher, error) {
	if onReload == nil {
		return nil, ErrNilReload
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve graph path: %w", err)
	}

	o := Options{Debounce: DefaultDebounce, Logger: slog.Default()}
	if opts != nil {
		if opts.Debounce > 0 {
			o.Debounce = opts.Debounce
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &GraphWatcher{
		path:     abs,
		base:     filepath.Base(abs),
		watcher:  fw,
		onReload: onReload,
		debounce: o.Debounce,
		logger:   o.Logger.With(slog.String("graph", abs)),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched document.
func (w *GraphWatcher) Path() string { return w.path }

// Start begins watching.
//
// # Description
//
// Spawns the event loop. Watching ends when ctx is cancelled or Stop is
// called. A watcher can be started once.
func (w *GraphWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. Safe to
// call more than once and before Start.
func (w *GraphWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		running := w.running
		w.started = true
		w.mu.Unlock()
		if running {
			<-w.stopped
		}
	})
}

// Stats returns the number of successful and failed reloads.
func (w *GraphWatcher) Stats() (reloads, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads, w.fails
}

// Reload loads and builds the document now, bypassing the debounce.
func (w *GraphWatcher) Reload(ctx context.Context) error {
	doc, err := scene.LoadFile(w.path)
	if err == nil {
		var sc *scene.Scene
		sc, err = doc.Build(scene.WithLogger(w.logger))
		if err == nil {
			w.mu.Lock()
			w.reloads++
			w.mu.Unlock()
			w.logger.Info("graph reloaded",
				slog.Int("nodes", sc.Stats().Nodes),
				slog.Int("edges", sc.Stats().Edges),
			)
			w.onReload(ctx, sc)
			return nil
		}
	}

	w.mu.Lock()
	w.fails++
	w.mu.Unlock()
	w.logger.Warn("graph reload failed, keeping previous scene", slog.String("error", err.Error()))
	return err
}

// run collects events and reloads after the debounce window.
func (w *GraphWatcher) run(ctx context.Context) {
	defer close(w.stopped)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("graph document changed", slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			_ = w.Reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", slog.String("error", err.Error()))
		}
	}
}

// relevant reports whether ev leaves new content at the document path.
// Remove and rename-away wait for the following create.
func (w *GraphWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.base {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
