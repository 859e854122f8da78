// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search finds nodes and cells by label.
//
// Matching is a substring test, case-insensitive by default. Results come
// back in scene order with each node ahead of its own cells, so the first
// match is the one a reader scanning the graph top to bottom would see
// first.
package search

import (
	"strings"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// Match is one search hit.
type Match struct {
	// ID is the node or cell id.
	ID string `json:"id"`

	// Element is ElementNode or ElementCell.
	Element scene.ElementKind `json:"-"`

	// ElementName is Element as a string, for JSON.
	ElementName string `json:"element"`

	// Label is the displayed text that matched, or the node label when
	// only the path matched.
	Label string `json:"label"`

	// Path is the owning node's source path, if any.
	Path string `json:"path,omitempty"`

	// Kind is the symbol kind. Only meaningful for cells.
	Kind scene.CellKind `json:"kind,omitempty"`

	// Exact is true when the label equals the query.
	Exact bool `json:"exact"`
}

type entry struct {
	id      string
	element scene.ElementKind
	label   string
	path    string
	kind    scene.CellKind

	lowerLabel string
	lowerPath  string
}

// Index is a prepared list of searchable labels.
//
// # Thread Safety
//
// Immutable after Build. Safe for concurrent queries.
type Index struct {
	entries []entry
}

// Build indexes every node and cell of a scene.
func Build(sc *scene.Scene) *Index {
	idx := &Index{}
	for _, n := range sc.Nodes() {
		label := n.DisplayLabel()
		idx.entries = append(idx.entries, entry{
			id:         n.ID,
			element:    scene.ElementNode,
			label:      label,
			path:       n.Path,
			lowerLabel: strings.ToLower(label),
			lowerPath:  strings.ToLower(n.Path),
		})
		idx.addCells(n.Path, n.Cells)
	}
	return idx
}

func (idx *Index) addCells(path string, cells []scene.Cell) {
	for i := range cells {
		c := &cells[i]
		idx.entries = append(idx.entries, entry{
			id:         c.ID,
			element:    scene.ElementCell,
			label:      c.Label,
			path:       path,
			kind:       c.Kind,
			lowerLabel: strings.ToLower(c.Label),
		})
		idx.addCells(path, c.Children)
	}
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int { return len(idx.entries) }

type queryOptions struct {
	kinds         map[scene.CellKind]bool
	elements      map[scene.ElementKind]bool
	caseSensitive bool
	limit         int
}

// QueryOption configures a query.
type QueryOption func(*queryOptions)

// WithKinds restricts matches to cells of the given symbol kinds. Nodes
// never match a kind-restricted query.
func WithKinds(kinds ...scene.CellKind) QueryOption {
	return func(o *queryOptions) {
		if len(kinds) == 0 {
			return
		}
		o.kinds = make(map[scene.CellKind]bool, len(kinds))
		for _, k := range kinds {
			o.kinds[k] = true
		}
	}
}

// WithElements restricts matches to nodes, cells, or both.
func WithElements(elements ...scene.ElementKind) QueryOption {
	return func(o *queryOptions) {
		if len(elements) == 0 {
			return
		}
		o.elements = make(map[scene.ElementKind]bool, len(elements))
		for _, e := range elements {
			o.elements[e] = true
		}
	}
}

// WithCaseSensitive makes the substring test case-sensitive.
func WithCaseSensitive() QueryOption {
	return func(o *queryOptions) { o.caseSensitive = true }
}

// WithLimit caps the number of matches. Zero or negative means no cap.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) { o.limit = n }
}

// Query returns entries whose label contains q.
//
// # Description
//
// Cells match on their label. Nodes match on their display label or their
// path. An empty or whitespace-only query matches nothing.
//
// # Outputs
//
//   - []Match: In scene order. Nil when nothing matched.
func (idx *Index) Query(q string, opts ...QueryOption) []Match {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	needle := q
	if !o.caseSensitive {
		needle = strings.ToLower(q)
	}

	var out []Match
	for i := range idx.entries {
		e := &idx.entries[i]
		if o.elements != nil && !o.elements[e.element] {
			continue
		}
		if o.kinds != nil && (e.element != scene.ElementCell || !o.kinds[e.kind]) {
			continue
		}

		label, path := e.lowerLabel, e.lowerPath
		if o.caseSensitive {
			label, path = e.label, e.path
		}
		labelHit := strings.Contains(label, needle)
		pathHit := e.element == scene.ElementNode && path != "" && strings.Contains(path, needle)
		if !labelHit && !pathHit {
			continue
		}

		out = append(out, Match{
			ID:          e.id,
			Element:     e.element,
			ElementName: e.element.String(),
			Label:       e.label,
			Path:        e.path,
			Kind:        e.kind,
			Exact:       label == needle,
		})
		if o.limit > 0 && len(out) >= o.limit {
			break
		}
	}
	return out
}

// First returns the first match of q, if any.
func (idx *Index) First(q string, opts ...QueryOption) (Match, bool) {
	matches := idx.Query(q, append(opts, WithLimit(1))...)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
