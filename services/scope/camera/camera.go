// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package camera implements the pan/zoom transform of a graph view.
//
// A screen point s and a graph point g are related by
//
//	s = g*Scale + Translate
//
// Scale is clamped to the configured zoom range. All operations are
// synchronous reactions to input events; a Camera is not safe for
// concurrent use.
package camera

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

const (
	// WheelZoomOut is the scale factor for a wheel tick away from the user.
	WheelZoomOut = 0.9

	// WheelZoomIn is the scale factor for a wheel tick toward the user.
	WheelZoomIn = 1.1

	// DefaultZoomStep is the factor used by the zoom in/out buttons.
	DefaultZoomStep = 1.2
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid camera options")

// Options bounds the camera.
type Options struct {
	// MinZoom is the smallest allowed scale. Must be positive.
	MinZoom float64 `json:"min_zoom" yaml:"min_zoom"`

	// MaxZoom is the largest allowed scale. May be +Inf.
	MaxZoom float64 `json:"max_zoom" yaml:"max_zoom"`

	// ZoomStep is the ZoomIn/ZoomOut factor. Must be greater than 1.
	ZoomStep float64 `json:"zoom_step" yaml:"zoom_step"`
}

// DefaultOptions returns the zoom range of the interactive view, 0.1 to 5.
func DefaultOptions() Options {
	return Options{MinZoom: 0.1, MaxZoom: 5, ZoomStep: DefaultZoomStep}
}

// FitToWindowOptions returns the zoom range of fit-to-window views, which
// never zoom out past the natural size.
func FitToWindowOptions() Options {
	return Options{MinZoom: 1, MaxZoom: math.Inf(1), ZoomStep: DefaultZoomStep}
}

// Validate checks the zoom range.
func (o Options) Validate() error {
	switch {
	case !(o.MinZoom > 0):
		return fmt.Errorf("%w: min zoom %v must be positive", ErrInvalidOptions, o.MinZoom)
	case math.IsNaN(o.MaxZoom) || o.MaxZoom < o.MinZoom:
		return fmt.Errorf("%w: max zoom %v below min zoom %v", ErrInvalidOptions, o.MaxZoom, o.MinZoom)
	case !(o.ZoomStep > 1):
		return fmt.Errorf("%w: zoom step %v must be greater than 1", ErrInvalidOptions, o.ZoomStep)
	}
	return nil
}

// State is the transform.
type State struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Camera holds the transform of one view.
type Camera struct {
	opts     Options
	state    State
	viewport scene.Size
	dragging bool
	last     scene.Point
}

// New creates a camera at the identity transform.
//
// # Inputs
//
//   - opts: Zoom range. Invalid options fall back to DefaultOptions.
//   - viewport: Screen size of the view. May be zero until the first
//     resize; CenterOn does nothing until it is known.
func New(opts Options, viewport scene.Size) *Camera {
	if opts.Validate() != nil {
		opts = DefaultOptions()
	}
	c := &Camera{opts: opts, viewport: viewport}
	c.Reset()
	return c
}

// Options returns the zoom range.
func (c *Camera) Options() Options { return c.opts }

// State returns the current transform.
func (c *Camera) State() State { return c.state }

// Viewport returns the screen size of the view.
func (c *Camera) Viewport() scene.Size { return c.viewport }

// SetViewport records a new screen size. The transform is unchanged.
func (c *Camera) SetViewport(size scene.Size) { c.viewport = size }

// clamp limits a scale to the zoom range.
func (c *Camera) clamp(s float64) float64 {
	return math.Max(c.opts.MinZoom, math.Min(c.opts.MaxZoom, s))
}

// Reset restores scale 1 (clamped to the range) and zero translation.
func (c *Camera) Reset() {
	c.state = State{Scale: c.clamp(1)}
	c.dragging = false
}

// BeginDrag starts a pan gesture at a screen point.
func (c *Camera) BeginDrag(p scene.Point) {
	c.dragging = true
	c.last = p
}

// DragTo moves the view by the pointer delta since the last drag point.
// Returns false when no drag is active.
func (c *Camera) DragTo(p scene.Point) bool {
	if !c.dragging {
		return false
	}
	c.state.TranslateX += p.X - c.last.X
	c.state.TranslateY += p.Y - c.last.Y
	c.last = p
	return true
}

// EndDrag finishes the pan gesture.
func (c *Camera) EndDrag() { c.dragging = false }

// Dragging reports whether a pan gesture is active.
func (c *Camera) Dragging() bool { return c.dragging }

// Wheel zooms by one wheel tick keeping the graph point under the cursor
// fixed on screen.
//
// # Inputs
//
//   - cursor: Screen point of the pointer.
//   - deltaY: Wheel delta. Positive zooms out, otherwise zooms in.
//
// # Outputs
//
//   - bool: False when the clamped scale did not change.
func (c *Camera) Wheel(cursor scene.Point, deltaY float64) bool {
	factor := WheelZoomIn
	if deltaY > 0 {
		factor = WheelZoomOut
	}
	return c.ZoomAt(cursor, factor)
}

// ZoomIn zooms in by the zoom step around the viewport centre.
func (c *Camera) ZoomIn() bool {
	return c.ZoomAt(c.viewportCenter(), c.opts.ZoomStep)
}

// ZoomOut zooms out by the zoom step around the viewport centre.
func (c *Camera) ZoomOut() bool {
	return c.ZoomAt(c.viewportCenter(), 1/c.opts.ZoomStep)
}

// ZoomAt multiplies the scale by factor, clamped, keeping anchor fixed.
//
//	translate = anchor - (anchor - translate) * (newScale / scale)
func (c *Camera) ZoomAt(anchor scene.Point, factor float64) bool {
	newScale := c.clamp(c.state.Scale * factor)
	if newScale == c.state.Scale {
		return false
	}
	ratio := newScale / c.state.Scale
	c.state.TranslateX = anchor.X - (anchor.X-c.state.TranslateX)*ratio
	c.state.TranslateY = anchor.Y - (anchor.Y-c.state.TranslateY)*ratio
	c.state.Scale = newScale
	return true
}

func (c *Camera) viewportCenter() scene.Point {
	return scene.Point{X: c.viewport.Width / 2, Y: c.viewport.Height / 2}
}

// CenterOn moves the view so rect's centre is at the viewport centre.
//
// # Description
//
// Does nothing when rect, transformed to the screen, already lies fully
// inside the viewport, or when the viewport size is unknown. The scale is
// never changed. A degenerate rect counts as its centre point.
//
// # Outputs
//
//   - bool: True when the translation changed.
func (c *Camera) CenterOn(rect scene.Rect) bool {
	if c.viewport.Width <= 0 || c.viewport.Height <= 0 {
		return false
	}
	view := scene.Rect{Right: c.viewport.Width, Bottom: c.viewport.Height}

	center := rect.Center()
	if rect.IsDegenerate() {
		if view.ContainsPoint(c.GraphToScreen(center)) {
			return false
		}
	} else if view.Contains(c.ToScreen(rect)) {
		return false
	}

	c.state.TranslateX = c.viewport.Width/2 - center.X*c.state.Scale
	c.state.TranslateY = c.viewport.Height/2 - center.Y*c.state.Scale
	return true
}

// GraphToScreen maps a graph point to the screen.
func (c *Camera) GraphToScreen(p scene.Point) scene.Point {
	return scene.Point{
		X: p.X*c.state.Scale + c.state.TranslateX,
		Y: p.Y*c.state.Scale + c.state.TranslateY,
	}
}

// ScreenToGraph maps a screen point to graph space.
func (c *Camera) ScreenToGraph(p scene.Point) scene.Point {
	return scene.Point{
		X: (p.X - c.state.TranslateX) / c.state.Scale,
		Y: (p.Y - c.state.TranslateY) / c.state.Scale,
	}
}

// ToScreen maps a graph rect to the screen.
func (c *Camera) ToScreen(r scene.Rect) scene.Rect {
	tl := c.GraphToScreen(scene.Point{X: r.Left, Y: r.Top})
	br := c.GraphToScreen(scene.Point{X: r.Right, Y: r.Bottom})
	return scene.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// VisibleRect returns the part of graph space currently on screen.
func (c *Camera) VisibleRect() scene.Rect {
	tl := c.ScreenToGraph(scene.Point{})
	br := c.ScreenToGraph(scene.Point{X: c.viewport.Width, Y: c.viewport.Height})
	return scene.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// Transform renders the state as a CSS transform value.
func (c *Camera) Transform() string {
	return c.state.Transform()
}

// Transform renders the state as a CSS transform value, e.g.
// "translate(10px, -4.5px) scale(1.1)".
func (s State) Transform() string {
	return "translate(" + formatFloat(s.TranslateX) + "px, " + formatFloat(s.TranslateY) + "px) scale(" + formatFloat(s.Scale) + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
