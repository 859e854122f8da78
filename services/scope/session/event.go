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
	"errors"

	"github.com/AleutianAI/callscope/services/scope/camera"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/selection"
)

// Sentinel errors for event handling.
var (
	// ErrUnknownEvent is returned for an event type the session does not handle.
	ErrUnknownEvent = errors.New("unknown event type")

	// ErrMissingPoint is returned for pointer events without a screen point.
	ErrMissingPoint = errors.New("pointer event requires a point")

	// ErrMissingViewport is returned for a resize event without a size.
	ErrMissingViewport = errors.New("resize event requires a viewport")
)

// EventType names a user input event.
type EventType string

const (
	// EventClick selects the element under the pointer, or clears the
	// selection when the pointer is over the background.
	EventClick EventType = "click"

	// EventDoubleClick requests navigation for a node or cell, and resets
	// the camera elsewhere.
	EventDoubleClick EventType = "dblclick"

	// EventWheel zooms around the pointer.
	EventWheel EventType = "wheel"

	// EventDragStart begins a pan gesture.
	EventDragStart EventType = "drag_start"

	// EventDragMove pans by the pointer delta.
	EventDragMove EventType = "drag_move"

	// EventDragEnd ends a pan gesture.
	EventDragEnd EventType = "drag_end"

	// EventKey handles keyboard shortcuts.
	EventKey EventType = "key"

	// EventSearch selects the first search match.
	EventSearch EventType = "search"

	// EventResize records a new viewport size.
	EventResize EventType = "resize"

	// EventReset restores the default camera.
	EventReset EventType = "reset"

	// EventZoomIn is the zoom in toolbar button.
	EventZoomIn EventType = "zoom_in"

	// EventZoomOut is the zoom out toolbar button.
	EventZoomOut EventType = "zoom_out"

	// EventSelect selects an element by id, bypassing hit resolution.
	EventSelect EventType = "select"

	// EventClear clears the selection.
	EventClear EventType = "clear"
)

// Keyboard shortcuts understood by EventKey.
const (
	KeyEscape  = "Escape"
	KeyZoomIn  = "+"
	KeyZoomIn2 = "="
	KeyZoomOut = "-"
	KeyReset   = "0"
)

// Event is one user input.
//
// Fields not used by the event type are ignored.
type Event struct {
	Type EventType `json:"type" binding:"required"`

	// Chain lists element ids from the raw pointer target outward. When
	// present it takes precedence over Point for click and dblclick.
	Chain []string `json:"chain,omitempty"`

	// Point is the pointer position in screen space.
	Point *scene.Point `json:"point,omitempty"`

	// DeltaY is the wheel delta.
	DeltaY float64 `json:"delta_y,omitempty"`

	// Key is the key name for EventKey.
	Key string `json:"key,omitempty"`

	// Query is the text for EventSearch.
	Query string `json:"query,omitempty"`

	// Kinds restricts EventSearch to cell kinds.
	Kinds []scene.CellKind `json:"kinds,omitempty"`

	// Viewport is the new size for EventResize.
	Viewport *scene.Size `json:"viewport,omitempty"`

	// Target is the element for EventSelect.
	Target *selection.Target `json:"target,omitempty"`
}

// NavigationRequest asks the editor to open a source location.
type NavigationRequest struct {
	// Path is absolute when a workspace root is configured, otherwise as
	// recorded in the graph.
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// Frame is everything a renderer needs after one event.
type Frame struct {
	SessionID  string              `json:"session_id"`
	Generation uint64              `json:"generation"`
	State      selection.State     `json:"state"`
	Partition  selection.Partition `json:"partition"`
	Camera     camera.State        `json:"camera"`
	Transform  string              `json:"transform"`

	// Centered is true when the camera moved to show the selection.
	Centered bool `json:"centered,omitempty"`

	// Navigation is set when the event asked to open a source location.
	Navigation *NavigationRequest `json:"navigation,omitempty"`

	// Matches holds search results for EventSearch.
	Matches []search.Match `json:"matches,omitempty"`
}
