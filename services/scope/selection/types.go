// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selection computes which parts of a scene stay visible when an
// element is selected.
//
// # Description
//
// Selecting a node, cell, edge or cluster label partitions the scene into
// a kept group and a faded group and marks edges as incoming or outgoing
// relative to the selection. The computation is a pure function of the
// scene, its adjacency index and the target (Compute). Engine wraps it
// with the Idle/Highlighted state machine.
//
// # Thread Safety
//
// Compute is safe for concurrent use on a shared scene. Engine is not;
// callers serialise access (see the session package).
package selection

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// Target is the element a selection event points at.
//
// The zero Target means "nothing selected".
type Target struct {
	Kind scene.ElementKind `json:"kind"`
	ID   string            `json:"id,omitempty"`
}

// IsZero reports whether the target selects nothing.
func (t Target) IsZero() bool {
	return t.Kind == scene.ElementNone || t.ID == ""
}

// NodeTarget targets a node.
func NodeTarget(id string) Target { return Target{Kind: scene.ElementNode, ID: id} }

// CellTarget targets a cell.
func CellTarget(id string) Target { return Target{Kind: scene.ElementCell, ID: id} }

// EdgeTarget targets an edge.
func EdgeTarget(id string) Target { return Target{Kind: scene.ElementEdge, ID: id} }

// ClusterTarget targets a cluster label.
func ClusterTarget(id string) Target { return Target{Kind: scene.ElementCluster, ID: id} }

// MarshalJSON writes the kind by name.
func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		ID   string `json:"id,omitempty"`
	}{Kind: t.Kind.String(), ID: t.ID})
}

// UnmarshalJSON reads the kind by name.
func (t *Target) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, ok := scene.ParseElementKind(raw.Kind)
	if !ok {
		return fmt.Errorf("%q: %w", raw.Kind, ErrUnknownKind)
	}
	*t = Target{Kind: kind, ID: raw.ID}
	return nil
}

// Phase is the engine's state machine position.
type Phase int

const (
	// PhaseIdle means nothing is selected and every element is shown.
	PhaseIdle Phase = iota

	// PhaseHighlighted means a selection partitions the scene.
	PhaseHighlighted
)

// String returns "idle" or "highlighted".
func (p Phase) String() string {
	if p == PhaseHighlighted {
		return "highlighted"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "highlighted":
		*p = PhaseHighlighted
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// State is the current selection.
type State struct {
	Phase  Phase  `json:"phase"`
	Target Target `json:"target"`

	// Focus is the focus-mode root cell of the scene, if any.
	Focus string `json:"focus,omitempty"`
}

// Marker is a set of highlight classes applied to one element.
type Marker uint8

const (
	// MarkerIncoming marks an edge that enters the selection.
	MarkerIncoming Marker = 1 << iota

	// MarkerOutgoing marks an edge that leaves the selection.
	MarkerOutgoing

	// MarkerSelected marks the selected element itself.
	MarkerSelected
)

// Has reports whether every bit of o is set in m.
func (m Marker) Has(o Marker) bool { return m&o == o }

// Names returns the class names in a fixed order.
func (m Marker) Names() []string {
	names := make([]string, 0, 3)
	if m.Has(MarkerIncoming) {
		names = append(names, "incoming")
	}
	if m.Has(MarkerOutgoing) {
		names = append(names, "outgoing")
	}
	if m.Has(MarkerSelected) {
		names = append(names, "selected")
	}
	return names
}

// String joins the class names with spaces, like a class attribute.
func (m Marker) String() string { return strings.Join(m.Names(), " ") }

// MarshalJSON writes the class names as an array.
func (m Marker) MarshalJSON() ([]byte, error) { return json.Marshal(m.Names()) }

// UnmarshalJSON reads an array of class names. Unknown names are ignored.
func (m *Marker) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Marker
	for _, name := range names {
		switch name {
		case "incoming":
			out |= MarkerIncoming
		case "outgoing":
			out |= MarkerOutgoing
		case "selected":
			out |= MarkerSelected
		}
	}
	*m = out
	return nil
}

// Layer lists element ids of one rendering group, each in scene order.
type Layer struct {
	Clusters []string `json:"clusters"`
	Nodes    []string `json:"nodes"`
	Edges    []string `json:"edges"`
}

// Len returns the number of ids in the layer.
func (l Layer) Len() int { return len(l.Clusters) + len(l.Nodes) + len(l.Edges) }

// Partition is the result of a selection.
type Partition struct {
	// Target is the selection this partition was computed for. Zero for
	// the Idle partition.
	Target Target `json:"target"`

	// Kept elements render normally.
	Kept Layer `json:"kept"`

	// Faded elements render dimmed, beneath the kept group.
	Faded Layer `json:"faded"`

	// Markers maps element ids to their highlight classes. Elements
	// without markers are absent.
	Markers map[string]Marker `json:"markers"`
}

// IsIdle reports whether the partition shows everything unhighlighted.
func (p Partition) IsIdle() bool { return p.Target.IsZero() }

// DrawOrder returns every element id bottom to top: the faded group
// first, then the kept group, each as clusters, nodes, edges.
func (p Partition) DrawOrder() []string {
	out := make([]string, 0, p.Kept.Len()+p.Faded.Len())
	for _, l := range []Layer{p.Faded, p.Kept} {
		out = append(out, l.Clusters...)
		out = append(out, l.Nodes...)
		out = append(out, l.Edges...)
	}
	return out
}

// Marker returns the markers of an element.
func (p Partition) Marker(id string) Marker { return p.Markers[id] }

// IsKept reports whether id is in the kept group.
func (p Partition) IsKept(id string) bool {
	return slices.Contains(p.Kept.Nodes, id) ||
		slices.Contains(p.Kept.Edges, id) ||
		slices.Contains(p.Kept.Clusters, id)
}
