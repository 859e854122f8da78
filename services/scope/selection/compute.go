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

// judgeFunc classifies an edge relative to the selection. Both results may
// be true at once, e.g. for an edge that stays inside the selected node.
type judgeFunc func(e scene.Edge) (incoming, outgoing bool)

// Compute partitions the scene for a selection target.
//
// # Description
//
// Dispatches on the target kind:
//
//   - node N: edges entering or leaving any cell of N are related.
//   - cell, no focus: edges entering or leaving the cell or any cell
//     nested inside it are related.
//   - cell, focus mode: edges on the transitive call chains through the
//     cell are related (see focusJudge).
//   - edge: only the edge itself survives.
//   - cluster: nodes strictly inside the cluster rect are members; edges
//     touching a member are related.
//
// Related edges keep their endpoint nodes visible. A cluster stays visible
// while it strictly contains at least one kept node.
//
// # Inputs
//
//   - sc: The frozen scene. Must not be nil.
//   - idx: Adjacency index of sc. When nil, sc.Index() is used.
//   - t: The target. A zero target, or an id that does not name an
//     element of the given kind, yields the Idle partition.
//
// # Outputs
//
//   - Partition: Never has nil slices for the kept layer of a non-empty
//     scene. Deterministic for a given scene and target.
func Compute(sc *scene.Scene, idx *scene.Index, t Target) Partition {
	if t.IsZero() || !sc.Has(t.Kind, t.ID) {
		return Idle(sc)
	}
	if idx == nil {
		idx = sc.Index()
	}

	var p Partition
	switch t.Kind {
	case scene.ElementNode:
		p = partition(sc, map[string]bool{t.ID: true}, nodeJudge(t.ID))
	case scene.ElementCell:
		seed := map[string]bool{scene.OwnerNode(t.ID): true}
		if sc.HasFocus() {
			p = partition(sc, seed, focusJudge(idx, t.ID, sc.Focus()))
		} else {
			p = partition(sc, seed, cellJudge(sc, t.ID))
		}
	case scene.ElementEdge:
		p = isolateEdge(sc, t.ID)
	case scene.ElementCluster:
		members := clusterMembers(sc, t.ID)
		p = partition(sc, members, clusterJudge(members))
	default:
		return Idle(sc)
	}

	p.Target = t
	p.Markers[t.ID] |= MarkerSelected
	return p
}

// Idle returns the partition with every element kept and no markers.
func Idle(sc *scene.Scene) Partition {
	p := Partition{Markers: map[string]Marker{}}
	for _, c := range sc.Clusters() {
		p.Kept.Clusters = append(p.Kept.Clusters, c.ID)
	}
	for _, n := range sc.Nodes() {
		p.Kept.Nodes = append(p.Kept.Nodes, n.ID)
	}
	for _, e := range sc.Edges() {
		p.Kept.Edges = append(p.Kept.Edges, e.ID)
	}
	return p
}

func nodeJudge(nodeID string) judgeFunc {
	return func(e scene.Edge) (bool, bool) {
		return scene.BelongsTo(e.To, nodeID), scene.BelongsTo(e.From, nodeID)
	}
}

func cellJudge(sc *scene.Scene, cellID string) judgeFunc {
	ids := map[string]bool{cellID: true}
	for _, d := range sc.Descendants(cellID) {
		ids[d] = true
	}
	return func(e scene.Edge) (bool, bool) {
		return ids[e.To], ids[e.From]
	}
}

func clusterJudge(members map[string]bool) judgeFunc {
	return func(e scene.Edge) (bool, bool) {
		return members[scene.OwnerNode(e.To)], members[scene.OwnerNode(e.From)]
	}
}

// clusterMembers returns the nodes whose rect lies strictly inside the
// cluster rect.
func clusterMembers(sc *scene.Scene, clusterID string) map[string]bool {
	members := make(map[string]bool)
	c, ok := sc.Cluster(clusterID)
	if !ok {
		return members
	}
	for _, n := range sc.Nodes() {
		if c.Rect.StrictlyContains(n.Rect) {
			members[n.ID] = true
		}
	}
	return members
}

// partition runs the shared fade pass.
func partition(sc *scene.Scene, kept map[string]bool, judge judgeFunc) Partition {
	p := Partition{Markers: map[string]Marker{}}

	for _, e := range sc.Edges() {
		in, out := judge(e)
		if !in && !out {
			p.Faded.Edges = append(p.Faded.Edges, e.ID)
			continue
		}
		p.Kept.Edges = append(p.Kept.Edges, e.ID)
		kept[scene.OwnerNode(e.From)] = true
		kept[scene.OwnerNode(e.To)] = true

		var m Marker
		if in {
			m |= MarkerIncoming
		}
		if out {
			m |= MarkerOutgoing
		}
		p.Markers[e.ID] = m
	}

	splitNodesAndClusters(sc, kept, &p)
	return p
}

// isolateEdge keeps exactly one edge and its endpoint nodes.
func isolateEdge(sc *scene.Scene, edgeID string) Partition {
	p := Partition{Markers: map[string]Marker{}}
	kept := make(map[string]bool, 2)

	for _, e := range sc.Edges() {
		if e.ID != edgeID {
			p.Faded.Edges = append(p.Faded.Edges, e.ID)
			continue
		}
		p.Kept.Edges = append(p.Kept.Edges, e.ID)
		kept[scene.OwnerNode(e.From)] = true
		kept[scene.OwnerNode(e.To)] = true
	}

	splitNodesAndClusters(sc, kept, &p)
	return p
}

func splitNodesAndClusters(sc *scene.Scene, kept map[string]bool, p *Partition) {
	var keptRects []scene.Rect
	for _, n := range sc.Nodes() {
		if kept[n.ID] {
			p.Kept.Nodes = append(p.Kept.Nodes, n.ID)
			keptRects = append(keptRects, n.Rect)
		} else {
			p.Faded.Nodes = append(p.Faded.Nodes, n.ID)
		}
	}

	for _, c := range sc.Clusters() {
		if containsAny(c.Rect, keptRects) {
			p.Kept.Clusters = append(p.Kept.Clusters, c.ID)
		} else {
			p.Faded.Clusters = append(p.Faded.Clusters, c.ID)
		}
	}
}

func containsAny(outer scene.Rect, inner []scene.Rect) bool {
	for _, r := range inner {
		if outer.StrictlyContains(r) {
			return true
		}
	}
	return false
}
