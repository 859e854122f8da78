// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

const oneNode = `{"nodes": [{"id": "a", "path": "a.go",
  "rect": {"left": 0, "top": 0, "right": 10, "bottom": 10}}]}`

const twoNodes = `{"nodes": [
  {"id": "a", "path": "a.go", "rect": {"left": 0, "top": 0, "right": 10, "bottom": 10}},
  {"id": "b", "path": "b.go", "rect": {"left": 20, "top": 0, "right": 30, "bottom": 10}}]}`

type recorder struct {
	mu     sync.Mutex
	scenes []*scene.Scene
}

func (r *recorder) reload(_ context.Context, sc *scene.Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes = append(r.scenes, sc)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scenes)
}

func (r *recorder) last() *scene.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scenes[len(r.scenes)-1]
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestNew_NilReload(t *testing.T) {
	_, err := New("graph.json", nil, nil)
	assert.ErrorIs(t, err, ErrNilReload)
}

func TestReload_Direct(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	writeFile(t, path, oneNode)

	rec := &recorder{}
	w, err := New(path, rec.reload, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Reload(context.Background()))
	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, rec.last().Stats().Nodes)

	writeFile(t, path, "{not json")
	err = w.Reload(context.Background())
	assert.ErrorIs(t, err, scene.ErrInvalidDocument)
	assert.Equal(t, 1, rec.count(), "failed reload keeps the previous scene")

	reloads, fails := w.Stats()
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 1, fails)
}

func TestStart_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	writeFile(t, path, oneNode)

	rec := &recorder{}
	w, err := New(path, rec.reload, &Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyStarted)

	// Unrelated files in the same directory are ignored.
	writeFile(t, filepath.Join(dir, "other.json"), "{}")

	// A burst of writes collapses into one reload.
	for i := 0; i < 3; i++ {
		writeFile(t, path, twoNodes)
	}

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, rec.last().Stats().Nodes)
}

func TestStop_Idempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "graph.yaml"), func(context.Context, *scene.Scene) {}, nil)
	require.NoError(t, err)

	w.Stop()
	w.Stop()
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
}
