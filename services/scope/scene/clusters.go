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
	"path"
	"sort"
	"strings"
)

const (
	// DefaultClusterPadding is the gap between a cluster's border and the
	// nodes and sub-clusters inside it.
	DefaultClusterPadding = 16.0

	// ClusterLabelHeight is the height of the clickable label strip at the
	// top of a derived cluster.
	ClusterLabelHeight = 20.0

	clusterIDPrefix = "cluster:"
)

// ClustersByDirectory derives nested clusters from node paths.
//
// # Description
//
// Every directory that holds at least one node, directly or through a
// subdirectory, becomes a cluster labelled "/<dir>". A cluster's rect is
// the union of its nodes and sub-clusters, grown by padding on every side
// and by ClusterLabelHeight at the top so the label does not cover any
// member. Nodes at the workspace root and nodes without a path are not
// clustered.
//
// # Inputs
//
//   - nodes: Nodes with Path set relative to the workspace root.
//   - padding: Border gap. Must be positive for members to be strictly
//     contained.
//
// # Outputs
//
//   - []Cluster: Parents before children, siblings sorted by path.
//
// # Examples
//
//	nodes with paths "pkg/a/x.go", "pkg/b/y.go" yield clusters
//	"/pkg" (parent) and "/pkg/a", "/pkg/b" (children of "/pkg").
func ClustersByDirectory(nodes []Node, padding float64) []Cluster {
	members := make(map[string][]Rect)
	for _, n := range nodes {
		if n.Path == "" || n.Rect.IsDegenerate() {
			continue
		}
		dir := path.Dir(filepathToSlash(n.Path))
		for dir != "." && dir != "/" && dir != "" {
			members[dir] = append(members[dir], n.Rect)
			dir = path.Dir(dir)
		}
	}
	if len(members) == 0 {
		return nil
	}

	dirs := make([]string, 0, len(members))
	for d := range members {
		dirs = append(dirs, d)
	}
	// Deepest first so child rects are known before their parents.
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	rects := make(map[string]Rect, len(dirs))
	for _, d := range dirs {
		var r Rect
		for _, m := range members[d] {
			r = r.Union(m)
		}
		for _, child := range dirs {
			if path.Dir(child) == d {
				r = r.Union(rects[child])
			}
		}
		r = r.Expand(padding)
		r.Top -= ClusterLabelHeight
		rects[d] = r
	}

	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})

	out := make([]Cluster, 0, len(dirs))
	for _, d := range dirs {
		r := rects[d]
		label := Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Top + ClusterLabelHeight}
		c := Cluster{
			ID:        clusterIDPrefix + d,
			Label:     "/" + d,
			Rect:      r,
			LabelRect: &label,
		}
		if parent := path.Dir(d); parent != "." && parent != "/" {
			c.Parent = clusterIDPrefix + parent
		}
		out = append(out, c)
	}
	return out
}

func depth(dir string) int {
	return strings.Count(dir, "/")
}

func filepathToSlash(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}
