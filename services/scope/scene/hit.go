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

// Resolve picks the selectable element from a pointer target chain.
//
// # Description
//
// chain lists element ids from the raw pointer target outward, the way a
// renderer walks parent elements. The first id that names a node, cell,
// edge or cluster wins. Ids of decorative elements (text spans, shapes,
// title tags) are skipped.
//
// # Outputs
//
//   - string: The resolved id, "" when nothing in the chain is selectable.
//   - ElementKind: ElementNone when nothing resolved.
func (s *Scene) Resolve(chain []string) (string, ElementKind) {
	for _, id := range chain {
		if k := s.Kind(id); k != ElementNone {
			return id, k
		}
	}
	return "", ElementNone
}

// HitTest finds the most specific element under a graph-space point.
//
// The innermost cell wins over its parent cells, a cell wins over its
// node, and a node wins over a cluster label. Among overlapping cluster
// labels the one added last (the deepest) wins. Edges carry no geometry
// and are only reachable through Resolve.
func (s *Scene) HitTest(p Point) (string, ElementKind) {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if !n.Rect.ContainsPoint(p) {
			continue
		}
		if id := innermostCell(n.Cells, p); id != "" {
			return id, ElementCell
		}
		return n.ID, ElementNode
	}
	for i := len(s.clusters) - 1; i >= 0; i-- {
		c := s.clusters[i]
		if c.LabelRect != nil && c.LabelRect.ContainsPoint(p) {
			return c.ID, ElementCluster
		}
	}
	return "", ElementNone
}

func innermostCell(cells []Cell, p Point) string {
	for i := len(cells) - 1; i >= 0; i-- {
		if !cells[i].Rect.ContainsPoint(p) {
			continue
		}
		if id := innermostCell(cells[i].Children, p); id != "" {
			return id
		}
		return cells[i].ID
	}
	return ""
}
