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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoFileScene builds fileA (f1, with nested f1a) and fileB (g1, g2) with
// edges fileA:f1 -> fileB:g1 and fileB:g1 -> fileB:g2.
func twoFileScene(t *testing.T) *Scene {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.AddNode(Node{
		ID:   "fileA",
		Path: "src/a.go",
		Rect: NewRect(10, 10, 100, 100),
		Cells: []Cell{{
			ID:    "fileA:f1",
			Label: "f1",
			Kind:  CellKindFunction,
			Rect:  NewRect(20, 20, 80, 40),
			Children: []Cell{{
				ID:    "fileA:f1a",
				Label: "f1a",
				Rect:  NewRect(30, 30, 20, 10),
			}},
		}},
	}))
	require.NoError(t, b.AddNode(Node{
		ID:   "fileB",
		Path: "src/b.go",
		Rect: NewRect(200, 10, 100, 100),
		Cells: []Cell{
			{ID: "fileB:g1", Label: "g1", Rect: NewRect(210, 20, 80, 30)},
			{ID: "fileB:g2", Label: "g2", Rect: NewRect(210, 60, 80, 30)},
		},
	}))
	require.NoError(t, b.AddEdge("fileA:f1", "fileB:g1"))
	require.NoError(t, b.AddEdge("fileB:g1", "fileB:g2"))
	sc, err := b.Freeze()
	require.NoError(t, err)
	return sc
}

func TestRect_StrictlyContains(t *testing.T) {
	cluster := Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}

	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{"inside", Rect{Left: 10, Top: 10, Right: 20, Bottom: 20}, true},
		{"identical", Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}, false},
		{"touching one side", Rect{Left: 0, Top: 10, Right: 20, Bottom: 20}, false},
		{"partial overlap", Rect{Left: 90, Top: 90, Right: 120, Bottom: 120}, false},
		{"outside", Rect{Left: 200, Top: 200, Right: 220, Bottom: 220}, false},
		{"degenerate inner", Rect{Left: 10, Top: 10, Right: 10, Bottom: 20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cluster.StrictlyContains(tt.inner))
		})
	}

	t.Run("degenerate outer", func(t *testing.T) {
		flat := Rect{Left: 0, Top: 0, Right: 100, Bottom: 0}
		assert.False(t, flat.StrictlyContains(Rect{Left: 10, Top: 0, Right: 20, Bottom: 0}))
	})
}

func TestRect_UnionIgnoresDegenerate(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	assert.Equal(t, r, r.Union(Rect{}))
	assert.Equal(t, r, Rect{}.Union(r))
	assert.Equal(t, Rect{Left: 0, Top: 0, Right: 30, Bottom: 20}, r.Union(NewRect(20, 5, 10, 15)))
}

func TestOwnerNode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12:3_8", "12"},
		{"fileA:f1", "fileA"},
		{"fileA:f1:inner", "fileA"},
		{"fileA", "fileA"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OwnerNode(tt.in), "OwnerNode(%q)", tt.in)
	}
}

func TestParseEdgeID(t *testing.T) {
	from, to, ok := ParseEdgeID(EdgeID("fileA:f1", "fileB:g1"))
	require.True(t, ok)
	assert.Equal(t, "fileA:f1", from)
	assert.Equal(t, "fileB:g1", to)

	_, _, ok = ParseEdgeID("fileA:f1")
	assert.False(t, ok)
	_, _, ok = ParseEdgeID(" -> fileB:g1")
	assert.False(t, ok)
}

func TestCellKind_Parse(t *testing.T) {
	tests := []struct {
		in   string
		want CellKind
	}{
		{"function", CellKindFunction},
		{"Struct", CellKindType},
		{"enum", CellKindType},
		{"property", CellKindField},
		{"namespace", CellKindModule},
		{"12", CellKindFunction},
		{"6", CellKindMethod},
		{"23", CellKindType},
		{"13", CellKindOther},
	}
	for _, tt := range tests {
		got, err := ParseCellKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCellKind("gizmo")
	assert.Error(t, err)
}

func TestBuilder_RejectsInvalidElements(t *testing.T) {
	t.Run("empty node id", func(t *testing.T) {
		err := NewBuilder().AddNode(Node{})
		assert.ErrorIs(t, err, ErrEmptyID)
	})

	t.Run("separator in node id", func(t *testing.T) {
		err := NewBuilder().AddNode(Node{ID: "src:a", Cells: []Cell{{ID: "src:a:f"}}})
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("duplicate node", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.AddNode(Node{ID: "a"}))
		assert.ErrorIs(t, b.AddNode(Node{ID: "a"}), ErrDuplicateID)
	})

	t.Run("cell outside node", func(t *testing.T) {
		err := NewBuilder().AddNode(Node{ID: "a", Cells: []Cell{{ID: "b:1"}}})
		assert.ErrorIs(t, err, ErrCellOutsideNode)
	})

	t.Run("nested cell outside node", func(t *testing.T) {
		err := NewBuilder().AddNode(Node{ID: "a", Cells: []Cell{{
			ID:       "a:1",
			Children: []Cell{{ID: "ab:2"}},
		}}})
		assert.ErrorIs(t, err, ErrCellOutsideNode)
	})

	t.Run("duplicate cell within node", func(t *testing.T) {
		err := NewBuilder().AddNode(Node{ID: "a", Cells: []Cell{{ID: "a:1"}, {ID: "a:1"}}})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("rejected node leaves no cells behind", func(t *testing.T) {
		b := NewBuilder()
		require.Error(t, b.AddNode(Node{ID: "a", Cells: []Cell{{ID: "a:1"}, {ID: "x:2"}}}))
		require.NoError(t, b.AddNode(Node{ID: "a", Cells: []Cell{{ID: "a:1"}}}))
	})

	t.Run("unknown parent cluster", func(t *testing.T) {
		err := NewBuilder().AddCluster(Cluster{ID: "c", Parent: "missing"})
		assert.ErrorIs(t, err, ErrUnknownCluster)
	})

	t.Run("frozen", func(t *testing.T) {
		b := NewBuilder()
		_, err := b.Freeze()
		require.NoError(t, err)
		assert.ErrorIs(t, b.AddNode(Node{ID: "a"}), ErrSceneFrozen)
		assert.ErrorIs(t, b.AddEdge("a:1", "a:2"), ErrSceneFrozen)
		_, err = b.Freeze()
		assert.ErrorIs(t, err, ErrSceneFrozen)
	})
}

func TestBuilder_Freeze(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(Node{ID: "a", Cells: []Cell{{ID: "a:1"}, {ID: "a:2"}}}))
	require.NoError(t, b.AddEdge("a:1", "a:2"))
	require.NoError(t, b.AddEdge("a:1", "a:2"))
	require.NoError(t, b.AddEdge("a:1", "zz:9"))
	require.NoError(t, b.AddEdge("", "a:2"))
	b.SetFocus("a:404")

	sc, err := b.Freeze()
	require.NoError(t, err)

	stats := sc.Stats()
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 2, stats.Cells)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 2, stats.DroppedEdges)
	assert.Equal(t, 1, stats.DuplicateEdges)
	assert.False(t, sc.HasFocus(), "unknown focus cell disables focus mode")

	_, ok := sc.Edge("a:1 -> zz:9")
	assert.False(t, ok)
	assert.Equal(t, 1, sc.Index().Len())
}

func TestBuilder_CopiesCells(t *testing.T) {
	cells := []Cell{{ID: "a:1", Label: "one"}}
	b := NewBuilder()
	require.NoError(t, b.AddNode(Node{ID: "a", Cells: cells}))
	cells[0].Label = "changed"

	sc, err := b.Freeze()
	require.NoError(t, err)
	c, ok := sc.Cell("a:1")
	require.True(t, ok)
	assert.Equal(t, "one", c.Label)
}

func TestScene_Lookups(t *testing.T) {
	sc := twoFileScene(t)

	assert.Equal(t, ElementNode, sc.Kind("fileA"))
	assert.Equal(t, ElementCell, sc.Kind("fileA:f1a"))
	assert.Equal(t, ElementEdge, sc.Kind("fileA:f1 -> fileB:g1"))
	assert.Equal(t, ElementNone, sc.Kind("nope"))

	assert.Equal(t, []string{"fileA:f1a"}, sc.Descendants("fileA:f1"))
	assert.Nil(t, sc.Descendants("fileB:g1"))
	assert.Nil(t, sc.Descendants("missing"))
	assert.Equal(t, "fileA:f1", sc.ParentCell("fileA:f1a"))
	assert.Equal(t, "", sc.ParentCell("fileA:f1"))
	assert.Equal(t, []string{"fileA:f1", "fileA:f1a", "fileB:g1", "fileB:g2"}, sc.CellIDs())

	bounds, ok := sc.Bounds("fileA:f1 -> fileB:g1")
	require.True(t, ok)
	assert.Equal(t, Rect{Left: 20, Top: 20, Right: 290, Bottom: 60}, bounds)
}

func TestScene_HasByKind(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(Node{ID: "pkg", Rect: NewRect(10, 10, 50, 50), Cells: []Cell{{ID: "pkg:1"}}}))
	require.NoError(t, b.AddCluster(Cluster{ID: "pkg", Rect: NewRect(0, 0, 100, 100)}))
	sc, err := b.Freeze()
	require.NoError(t, err)

	assert.Equal(t, ElementNode, sc.Kind("pkg"))
	assert.True(t, sc.Has(ElementNode, "pkg"))
	assert.True(t, sc.Has(ElementCluster, "pkg"))
	assert.True(t, sc.Has(ElementCell, "pkg:1"))
	assert.False(t, sc.Has(ElementEdge, "pkg"))
	assert.False(t, sc.Has(ElementNone, "pkg"))

	r, ok := sc.BoundsOf(ElementCluster, "pkg")
	require.True(t, ok)
	assert.Equal(t, NewRect(0, 0, 100, 100), r)
	r, ok = sc.BoundsOf(ElementNode, "pkg")
	require.True(t, ok)
	assert.Equal(t, NewRect(10, 10, 50, 50), r)
	_, ok = sc.BoundsOf(ElementEdge, "pkg")
	assert.False(t, ok)
}

func TestBuildIndex_Membership(t *testing.T) {
	edges := []Edge{
		NewEdge("a:1", "b:1"),
		NewEdge("a:1", "a:2"),
		NewEdge("b:1", "a:1"),
		NewEdge("a:2", "a:2"),
		{ID: "broken", From: "a:1"},
	}
	idx := BuildIndex(edges)
	require.Equal(t, 4, idx.Len())

	for i := 0; i < idx.Len(); i++ {
		e := idx.Edge(i)
		assert.Contains(t, idx.Outgoing(e.From), e)
		assert.Contains(t, idx.Incoming(e.To), e)
	}

	// No list holds an edge that does not belong to it.
	for i := 0; i < idx.Len(); i++ {
		e := idx.Edge(i)
		for _, cell := range []string{"a:1", "a:2", "b:1"} {
			if cell != e.From {
				assert.NotContains(t, idx.Outgoing(cell), e)
			}
			if cell != e.To {
				assert.NotContains(t, idx.Incoming(cell), e)
			}
		}
	}

	assert.Equal(t, []Edge{edges[0], edges[1]}, idx.Outgoing("a:1"))
	assert.Empty(t, idx.Incoming("unknown"))
	assert.Empty(t, idx.OutgoingIDs("unknown"))
}

func TestScene_Resolve(t *testing.T) {
	sc := twoFileScene(t)

	id, kind := sc.Resolve([]string{"text-span", "fileA:f1a", "fileA:f1", "fileA"})
	assert.Equal(t, "fileA:f1a", id)
	assert.Equal(t, ElementCell, kind)

	id, kind = sc.Resolve([]string{"label", "fileB"})
	assert.Equal(t, "fileB", id)
	assert.Equal(t, ElementNode, kind)

	id, kind = sc.Resolve([]string{"background", "svg"})
	assert.Equal(t, "", id)
	assert.Equal(t, ElementNone, kind)
}

func TestScene_HitTest(t *testing.T) {
	sc := twoFileScene(t)

	tests := []struct {
		name string
		p    Point
		id   string
		kind ElementKind
	}{
		{"nested cell", Point{X: 35, Y: 35}, "fileA:f1a", ElementCell},
		{"outer cell", Point{X: 90, Y: 50}, "fileA:f1", ElementCell},
		{"node body", Point{X: 15, Y: 100}, "fileA", ElementNode},
		{"empty space", Point{X: 150, Y: 150}, "", ElementNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, kind := sc.HitTest(tt.p)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestClustersByDirectory(t *testing.T) {
	nodes := []Node{
		{ID: "x", Path: "pkg/a/x.go", Rect: NewRect(100, 100, 50, 50)},
		{ID: "y", Path: "pkg/b/y.go", Rect: NewRect(300, 100, 50, 50)},
		{ID: "z", Path: "main.go", Rect: NewRect(500, 100, 50, 50)},
		{ID: "w", Rect: NewRect(700, 100, 50, 50)},
	}
	clusters := ClustersByDirectory(nodes, DefaultClusterPadding)
	require.Len(t, clusters, 3)

	assert.Equal(t, "cluster:pkg", clusters[0].ID)
	assert.Equal(t, "/pkg", clusters[0].Label)
	assert.Equal(t, "", clusters[0].Parent)
	assert.Equal(t, "cluster:pkg/a", clusters[1].ID)
	assert.Equal(t, "cluster:pkg", clusters[1].Parent)
	assert.Equal(t, "cluster:pkg/b", clusters[2].ID)

	byID := map[string]Cluster{}
	for _, c := range clusters {
		byID[c.ID] = c
	}
	assert.True(t, byID["cluster:pkg/a"].Rect.StrictlyContains(nodes[0].Rect))
	assert.False(t, byID["cluster:pkg/a"].Rect.StrictlyContains(nodes[1].Rect))
	assert.True(t, byID["cluster:pkg"].Rect.StrictlyContains(byID["cluster:pkg/a"].Rect))
	assert.True(t, byID["cluster:pkg"].Rect.StrictlyContains(nodes[1].Rect))
	assert.False(t, byID["cluster:pkg"].Rect.StrictlyContains(nodes[2].Rect))

	label := byID["cluster:pkg/a"].LabelRect
	require.NotNil(t, label)
	assert.False(t, label.ContainsPoint(nodes[0].Rect.Center()))
}

func TestClustersByDirectory_NoPaths(t *testing.T) {
	assert.Nil(t, ClustersByDirectory([]Node{{ID: "a", Rect: NewRect(0, 0, 1, 1)}}, DefaultClusterPadding))
}
