// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scene

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Point is a position in graph or screen space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair, used for viewports.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned bounding box in graph space.
//
// A rect whose width or height is not positive is degenerate. Degenerate
// rects never contain anything and are never contained.
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// NewRect creates a rect from an origin and a size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

// Width returns Right - Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Bottom - Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// IsDegenerate reports whether the rect has no area.
func (r Rect) IsDegenerate() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// StrictlyContains reports whether inner lies inside r without touching
// any of r's four sides.
//
// Used for cluster membership: a cluster [0,0,100,100] contains
// [10,10,20,20] but neither [0,0,100,100] nor [90,90,120,120].
func (r Rect) StrictlyContains(inner Rect) bool {
	if r.IsDegenerate() || inner.IsDegenerate() {
		return false
	}
	return r.Left < inner.Left &&
		r.Top < inner.Top &&
		r.Right > inner.Right &&
		r.Bottom > inner.Bottom
}

// Contains reports whether inner lies inside r, edges included.
func (r Rect) Contains(inner Rect) bool {
	if r.IsDegenerate() || inner.IsDegenerate() {
		return false
	}
	return r.Left <= inner.Left &&
		r.Top <= inner.Top &&
		r.Right >= inner.Right &&
		r.Bottom >= inner.Bottom
}

// ContainsPoint reports whether p lies inside r, edges included.
func (r Rect) ContainsPoint(p Point) bool {
	if r.IsDegenerate() {
		return false
	}
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Union returns the smallest rect covering both r and o. A degenerate
// operand is ignored.
func (r Rect) Union(o Rect) Rect {
	switch {
	case r.IsDegenerate():
		return o
	case o.IsDegenerate():
		return r
	}
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Expand grows the rect by pad on every side.
func (r Rect) Expand(pad float64) Rect {
	return Rect{Left: r.Left - pad, Top: r.Top - pad, Right: r.Right + pad, Bottom: r.Bottom + pad}
}

// CellKind classifies the symbol a cell represents.
type CellKind int

const (
	// CellKindOther covers variables, constants and anything unclassified.
	CellKindOther CellKind = iota

	// CellKindFunction is a free function.
	CellKindFunction

	// CellKindMethod is a function bound to a type.
	CellKindMethod

	// CellKindInterface is an interface or trait.
	CellKindInterface

	// CellKindModule is a module, namespace or package.
	CellKindModule

	// CellKindConstructor is a constructor.
	CellKindConstructor

	// CellKindType is a struct, class or enum.
	CellKindType

	// CellKindField is a field or property.
	CellKindField
)

var cellKindNames = map[CellKind]string{
	CellKindOther:       "other",
	CellKindFunction:    "function",
	CellKindMethod:      "method",
	CellKindInterface:   "interface",
	CellKindModule:      "module",
	CellKindConstructor: "constructor",
	CellKindType:        "type",
	CellKindField:       "field",
}

// cellKindAliases maps accepted spellings to kinds.
var cellKindAliases = map[string]CellKind{
	"other":       CellKindOther,
	"function":    CellKindFunction,
	"method":      CellKindMethod,
	"interface":   CellKindInterface,
	"module":      CellKindModule,
	"namespace":   CellKindModule,
	"package":     CellKindModule,
	"constructor": CellKindConstructor,
	"type":        CellKindType,
	"struct":      CellKindType,
	"class":       CellKindType,
	"enum":        CellKindType,
	"field":       CellKindField,
	"property":    CellKindField,
}

// String returns the canonical name of the kind.
func (k CellKind) String() string {
	if name, ok := cellKindNames[k]; ok {
		return name
	}
	return "other"
}

// ParseCellKind parses a kind name or an LSP SymbolKind number.
//
// Unknown names return CellKindOther and an error.
func ParseCellKind(s string) (CellKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := cellKindAliases[s]; ok {
		return k, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return CellKindFromLSP(n), nil
	}
	return CellKindOther, fmt.Errorf("unknown cell kind %q", s)
}

// CellKindFromLSP maps an LSP SymbolKind value (1-26) to a CellKind.
func CellKindFromLSP(n int) CellKind {
	switch n {
	case 2, 3, 4: // Module, Namespace, Package
		return CellKindModule
	case 5, 10, 23: // Class, Enum, Struct
		return CellKindType
	case 6:
		return CellKindMethod
	case 7, 8: // Property, Field
		return CellKindField
	case 9:
		return CellKindConstructor
	case 11:
		return CellKindInterface
	case 12:
		return CellKindFunction
	default:
		return CellKindOther
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CellKind) UnmarshalText(text []byte) error {
	parsed, err := ParseCellKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UnmarshalJSON accepts both kind names and bare LSP numbers.
func (k *CellKind) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*k = CellKindFromLSP(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cell kind: %w", err)
	}
	return k.UnmarshalText([]byte(s))
}

// Position is a zero-based source location used for go-to-definition.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Node is a rendered file or module box.
type Node struct {
	// ID is stable for the lifetime of the scene.
	ID string

	// Label is the display title. Falls back to Path, then ID.
	Label string

	// Path is the source file, relative to the workspace root. Optional.
	Path string

	// Rect is the node's bounds in graph space.
	Rect Rect

	// Cells are the top-level symbols of the file, in render order.
	Cells []Cell
}

// DisplayLabel returns the best available title for the node.
func (n *Node) DisplayLabel() string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Path != "":
		return n.Path
	default:
		return n.ID
	}
}

// Cell is a rendered symbol box. Cells nest: a type holds its methods.
type Cell struct {
	// ID is "<nodeID>:<suffix>".
	ID string

	// Label is the symbol name.
	Label string

	// Kind is the symbol classification.
	Kind CellKind

	// Rect is the cell's bounds in graph space.
	Rect Rect

	// Position is the symbol's source position, if known.
	Position *Position

	// Children are nested symbols, in render order.
	Children []Cell
}

// Edge is a directed call from one cell to another.
type Edge struct {
	// ID is "<from> -> <to>".
	ID string

	// From is the calling cell id.
	From string

	// To is the called cell id.
	To string
}

// NewEdge creates an edge with its canonical id.
func NewEdge(from, to string) Edge {
	return Edge{ID: EdgeID(from, to), From: from, To: to}
}

// Cluster groups nodes, typically by directory.
type Cluster struct {
	// ID is unique among clusters.
	ID string

	// Label is the title shown on the cluster, e.g. the directory path.
	Label string

	// Rect covers every node logically inside the cluster.
	Rect Rect

	// LabelRect is the clickable label area. Nil when the label is not
	// clickable.
	LabelRect *Rect

	// Parent is the enclosing cluster id, empty for top-level clusters.
	Parent string
}
