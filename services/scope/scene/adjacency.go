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

// Index maps cell ids to the edges that enter and leave them.
//
// # Description
//
// Edges live in a single arena slice; the incoming and outgoing maps hold
// indices into it. Index order within each list follows the order of the
// edges passed to BuildIndex, so traversals are deterministic.
//
// # Thread Safety
//
// Immutable after BuildIndex returns. Safe for concurrent reads.
type Index struct {
	edges    []Edge
	incoming map[string][]int
	outgoing map[string][]int
}

// BuildIndex derives the adjacency index from a list of edges.
//
// # Description
//
// For every edge, appends its arena index to outgoing[From] and
// incoming[To]. Edges missing either endpoint cannot take part in a
// traversal and are skipped. Runs in O(E).
//
// # Inputs
//
//   - edges: Edges in scene order. The slice is copied.
//
// # Outputs
//
//   - *Index: Never nil.
func BuildIndex(edges []Edge) *Index {
	idx := &Index{
		edges:    make([]Edge, 0, len(edges)),
		incoming: make(map[string][]int),
		outgoing: make(map[string][]int),
	}
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			continue
		}
		i := len(idx.edges)
		idx.edges = append(idx.edges, e)
		idx.outgoing[e.From] = append(idx.outgoing[e.From], i)
		idx.incoming[e.To] = append(idx.incoming[e.To], i)
	}
	return idx
}

// Len returns the number of indexed edges.
func (idx *Index) Len() int { return len(idx.edges) }

// Edge returns the edge stored at arena position i.
func (idx *Index) Edge(i int) Edge { return idx.edges[i] }

// IncomingIDs returns arena positions of edges ending at cellID.
// Unknown cells yield nil.
func (idx *Index) IncomingIDs(cellID string) []int { return idx.incoming[cellID] }

// OutgoingIDs returns arena positions of edges starting at cellID.
// Unknown cells yield nil.
func (idx *Index) OutgoingIDs(cellID string) []int { return idx.outgoing[cellID] }

// Incoming returns the edges ending at cellID, in index order.
func (idx *Index) Incoming(cellID string) []Edge {
	return idx.resolve(idx.incoming[cellID])
}

// Outgoing returns the edges starting at cellID, in index order.
func (idx *Index) Outgoing(cellID string) []Edge {
	return idx.resolve(idx.outgoing[cellID])
}

func (idx *Index) resolve(ids []int) []Edge {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Edge, len(ids))
	for i, id := range ids {
		out[i] = idx.edges[id]
	}
	return out
}
