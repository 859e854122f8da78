// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"github.com/AleutianAI/callscope/services/scope/scene"
)

// direction selects which side of the index a closure walks.
type direction int

const (
	walkOutgoing direction = iota
	walkIncoming
)

// Closure returns the arena positions of every edge reachable from start
// in one direction.
//
// # Description
//
// Breadth-first expansion over the index. Each frontier is a fresh slice;
// the visited set belongs to this call alone and is seeded with start and
// focus, so the walk never expands the focus root or a cell twice. Every
// edge read while expanding a frontier cell is part of the closure, even
// when its far end was already visited.
//
// # Inputs
//
//   - idx: Adjacency index.
//   - start: Cell the walk begins at.
//   - focus: Focus root cell. May equal start or be empty.
//   - incoming: Walk incoming edges (callers) instead of outgoing (callees).
//
// # Outputs
//
//   - map[int]bool: Arena positions of touched edges.
//
// # Complexity
//
// O(V + E) over the reachable part of the graph.
func Closure(idx *scene.Index, start, focus string, incoming bool) map[int]bool {
	dir := walkOutgoing
	if incoming {
		dir = walkIncoming
	}
	return closure(idx, start, focus, dir)
}

func closure(idx *scene.Index, start, focus string, dir direction) map[int]bool {
	touched := make(map[int]bool)
	visited := map[string]bool{start: true}
	if focus != "" {
		visited[focus] = true
	}

	frontier := []string{start}
	for len(frontier) > 0 {
		var next []string
		for _, cell := range frontier {
			var edges []int
			if dir == walkOutgoing {
				edges = idx.OutgoingIDs(cell)
			} else {
				edges = idx.IncomingIDs(cell)
			}
			for _, i := range edges {
				touched[i] = true
				e := idx.Edge(i)
				far := e.To
				if dir == walkIncoming {
					far = e.From
				}
				if !visited[far] {
					visited[far] = true
					next = append(next, far)
				}
			}
		}
		frontier = next
	}
	return touched
}

// focusJudge marks edges on the call chains through cellID.
//
// The two closures are computed independently, each with its own visited
// set, so a cell reached going forward does not block the backward walk.
func focusJudge(idx *scene.Index, cellID, focus string) judgeFunc {
	incoming := edgeIDs(idx, closure(idx, cellID, focus, walkIncoming))
	outgoing := edgeIDs(idx, closure(idx, cellID, focus, walkOutgoing))
	return func(e scene.Edge) (bool, bool) {
		return incoming[e.ID], outgoing[e.ID]
	}
}

func edgeIDs(idx *scene.Index, positions map[int]bool) map[string]bool {
	ids := make(map[string]bool, len(positions))
	for i := range positions {
		ids[idx.Edge(i).ID] = true
	}
	return ids
}
