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

import "strings"

// CellSeparator separates the node id from the cell suffix in a cell id.
const CellSeparator = ":"

// edgeArrow separates the endpoints in an edge id.
const edgeArrow = " -> "

// OwnerNode returns the id of the node that owns the given cell id.
//
// # Description
//
// Returns the substring before the first ':'. An id without ':' is
// returned unchanged, so a plain node id maps to itself.
//
// # Examples
//
//	OwnerNode("12:3_8")  // "12"
//	OwnerNode("fileA")   // "fileA"
func OwnerNode(cellID string) string {
	if i := strings.Index(cellID, CellSeparator); i >= 0 {
		return cellID[:i]
	}
	return cellID
}

// BelongsTo reports whether cellID is a cell of nodeID.
func BelongsTo(cellID, nodeID string) bool {
	return strings.HasPrefix(cellID, nodeID+CellSeparator)
}

// CellID joins a node id and a suffix into a cell id.
func CellID(nodeID, suffix string) string {
	return nodeID + CellSeparator + suffix
}

// EdgeID returns the canonical id of the edge from -> to.
func EdgeID(from, to string) string {
	return from + edgeArrow + to
}

// ParseEdgeID splits an edge id into its endpoints.
func ParseEdgeID(id string) (from, to string, ok bool) {
	from, to, ok = strings.Cut(id, edgeArrow)
	if !ok || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}
