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
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callscope/services/scope/scene"
)

// sceneSpec is a compact description of a test scene.
type sceneSpec struct {
	nodes    []scene.Node
	edges    [][2]string
	clusters []scene.Cluster
	focus    string
}

func buildScene(t *testing.T, spec sceneSpec) *scene.Scene {
	t.Helper()
	b := scene.NewBuilder()
	for _, n := range spec.nodes {
		require.NoError(t, b.AddNode(n))
	}
	for _, c := range spec.clusters {
		require.NoError(t, b.AddCluster(c))
	}
	for _, e := range spec.edges {
		require.NoError(t, b.AddEdge(e[0], e[1]))
	}
	if spec.focus != "" {
		b.SetFocus(spec.focus)
	}
	sc, err := b.Freeze()
	require.NoError(t, err)
	return sc
}

// node creates a node at column col holding one cell per suffix.
func node(id string, col int, suffixes ...string) scene.Node {
	x := float64(col * 200)
	n := scene.Node{ID: id, Rect: scene.NewRect(x+10, 10, 100, 100)}
	for i, s := range suffixes {
		n.Cells = append(n.Cells, scene.Cell{
			ID:    scene.CellID(id, s),
			Label: s,
			Rect:  scene.NewRect(x+20, float64(20+i*20), 80, 15),
		})
	}
	return n
}

// threeFiles: fileA:f1 -> fileB:g1 -> fileC:c1.
func threeFiles(t *testing.T) *scene.Scene {
	return buildScene(t, sceneSpec{
		nodes: []scene.Node{
			node("fileA", 0, "f1"),
			node("fileB", 1, "g1"),
			node("fileC", 2, "c1"),
		},
		edges: [][2]string{
			{"fileA:f1", "fileB:g1"},
			{"fileB:g1", "fileC:c1"},
		},
	})
}

// chain: a:A -> b:B -> c:C -> d:D, one node per cell.
func chain(t *testing.T, focus string) *scene.Scene {
	return buildScene(t, sceneSpec{
		nodes: []scene.Node{
			node("a", 0, "A"),
			node("b", 1, "B"),
			node("c", 2, "C"),
			node("d", 3, "D"),
		},
		edges: [][2]string{
			{"a:A", "b:B"},
			{"b:B", "c:C"},
			{"c:C", "d:D"},
		},
		focus: focus,
	})
}

const (
	edgeAB = "a:A -> b:B"
	edgeBC = "b:B -> c:C"
	edgeCD = "c:C -> d:D"
)

func TestCompute_NodeSelection(t *testing.T) {
	sc := threeFiles(t)
	edge := "fileA:f1 -> fileB:g1"

	p := Compute(sc, nil, NodeTarget("fileA"))

	assert.Equal(t, []string{edge}, p.Kept.Edges)
	assert.Equal(t, []string{"fileB:g1 -> fileC:c1"}, p.Faded.Edges)
	assert.Equal(t, MarkerOutgoing, p.Marker(edge))
	assert.Equal(t, []string{"fileA", "fileB"}, p.Kept.Nodes)
	assert.Equal(t, []string{"fileC"}, p.Faded.Nodes)
	assert.True(t, p.Marker("fileA").Has(MarkerSelected))
}

func TestCompute_NodeSelectionBothDirections(t *testing.T) {
	sc := threeFiles(t)

	p := Compute(sc, nil, NodeTarget("fileB"))

	assert.Equal(t, MarkerIncoming, p.Marker("fileA:f1 -> fileB:g1"))
	assert.Equal(t, MarkerOutgoing, p.Marker("fileB:g1 -> fileC:c1"))
	assert.Equal(t, []string{"fileA", "fileB", "fileC"}, p.Kept.Nodes)
	assert.Empty(t, p.Faded.Nodes)
}

func TestCompute_SelfEdgeIsIncomingAndOutgoing(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{node("a", 0, "x", "y")},
		edges: [][2]string{{"a:x", "a:y"}},
	})

	p := Compute(sc, nil, NodeTarget("a"))
	m := p.Marker("a:x -> a:y")
	assert.True(t, m.Has(MarkerIncoming))
	assert.True(t, m.Has(MarkerOutgoing))
}

func TestCompute_EdgeIsolation(t *testing.T) {
	sc := threeFiles(t)
	edge := "fileA:f1 -> fileB:g1"

	p := Compute(sc, nil, EdgeTarget(edge))

	assert.Equal(t, []string{edge}, p.Kept.Edges)
	assert.Equal(t, []string{"fileB:g1 -> fileC:c1"}, p.Faded.Edges)
	assert.Equal(t, []string{"fileA", "fileB"}, p.Kept.Nodes)
	assert.Equal(t, []string{"fileC"}, p.Faded.Nodes)
	assert.Equal(t, MarkerSelected, p.Marker(edge), "no incoming/outgoing markers on an isolated edge")
}

func TestCompute_CellSelectionIncludesNestedCells(t *testing.T) {
	typeNode := scene.Node{
		ID:   "x",
		Rect: scene.NewRect(0, 0, 100, 100),
		Cells: []scene.Cell{{
			ID:   "x:T",
			Rect: scene.NewRect(10, 10, 80, 80),
			Children: []scene.Cell{
				{ID: "x:T.m", Rect: scene.NewRect(20, 20, 60, 20)},
			},
		}},
	}
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{typeNode, node("y", 1, "u", "v")},
		edges: [][2]string{
			{"y:u", "x:T.m"},
			{"y:u", "y:v"},
		},
	})

	p := Compute(sc, nil, CellTarget("x:T"))
	assert.Equal(t, MarkerIncoming, p.Marker("y:u -> x:T.m"))
	assert.Equal(t, []string{"y:u -> y:v"}, p.Faded.Edges)
	assert.Equal(t, []string{"x", "y"}, p.Kept.Nodes)

	// Selecting the nested method alone only covers the method.
	p = Compute(sc, nil, CellTarget("x:T.m"))
	assert.Equal(t, []string{"y:u -> x:T.m"}, p.Kept.Edges)
}

func TestCompute_CellSelectionWithoutEdgesKeepsOwner(t *testing.T) {
	sc := threeFiles(t)
	sc2 := buildScene(t, sceneSpec{nodes: []scene.Node{node("lonely", 0, "z"), node("other", 1, "w")}})

	p := Compute(sc2, nil, CellTarget("lonely:z"))
	assert.Equal(t, []string{"lonely"}, p.Kept.Nodes)
	assert.Equal(t, []string{"other"}, p.Faded.Nodes)

	p = Compute(sc, nil, CellTarget("fileC:c1"))
	assert.Equal(t, []string{"fileB", "fileC"}, p.Kept.Nodes)
}

func TestCompute_FocusModeChain(t *testing.T) {
	sc := chain(t, "a:A")

	t.Run("select C", func(t *testing.T) {
		p := Compute(sc, nil, CellTarget("c:C"))
		assert.Equal(t, MarkerIncoming, p.Marker(edgeAB))
		assert.Equal(t, MarkerIncoming, p.Marker(edgeBC))
		assert.Equal(t, MarkerOutgoing, p.Marker(edgeCD))
		assert.Equal(t, []string{"a", "b", "c", "d"}, p.Kept.Nodes)
	})

	t.Run("select B", func(t *testing.T) {
		p := Compute(sc, nil, CellTarget("b:B"))
		assert.Equal(t, MarkerIncoming, p.Marker(edgeAB))
		assert.Equal(t, MarkerOutgoing, p.Marker(edgeBC))
		assert.False(t, p.Marker(edgeCD).Has(MarkerIncoming), "C->D is not on B's incoming chain")
		assert.Equal(t, MarkerOutgoing, p.Marker(edgeCD), "C->D is reached by B's transitive outgoing chain")
	})

	t.Run("select focus root", func(t *testing.T) {
		p := Compute(sc, nil, CellTarget("a:A"))
		for _, id := range []string{edgeAB, edgeBC, edgeCD} {
			assert.Equal(t, MarkerOutgoing, p.Marker(id), id)
		}
	})
}

func TestCompute_NonFocusIsDirectNeighboursOnly(t *testing.T) {
	sc := chain(t, "")

	p := Compute(sc, nil, CellTarget("c:C"))
	assert.Equal(t, []string{edgeBC, edgeCD}, p.Kept.Edges)
	assert.Equal(t, []string{edgeAB}, p.Faded.Edges)
	assert.Equal(t, []string{"b", "c", "d"}, p.Kept.Nodes)
	assert.Equal(t, []string{"a"}, p.Faded.Nodes)
}

func TestCompute_FocusModeCycleTerminates(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{node("a", 0, "A"), node("b", 1, "B"), node("c", 2, "C")},
		edges: [][2]string{
			{"a:A", "b:B"},
			{"b:B", "c:C"},
			{"c:C", "b:B"},
			{"c:C", "a:A"},
		},
		focus: "a:A",
	})

	p := Compute(sc, nil, CellTarget("b:B"))
	assert.True(t, p.Marker("c:C -> b:B").Has(MarkerIncoming))
	assert.True(t, p.Marker("c:C -> b:B").Has(MarkerOutgoing))
	assert.True(t, p.Marker("c:C -> a:A").Has(MarkerOutgoing))
	assert.Len(t, p.Kept.Edges, 4)
}

func TestClosure_IndependentVisitedSets(t *testing.T) {
	sc := chain(t, "a:A")
	idx := sc.Index()

	out := Closure(idx, "b:B", "a:A", false)
	in := Closure(idx, "b:B", "a:A", true)
	assert.Len(t, out, 2)
	assert.Len(t, in, 1)
}

func TestCompute_ClusterSelection(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{
			{ID: "inner", Rect: scene.Rect{Left: 10, Top: 10, Right: 20, Bottom: 20},
				Cells: []scene.Cell{{ID: "inner:1"}}},
			{ID: "same", Rect: scene.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100},
				Cells: []scene.Cell{{ID: "same:1"}}},
			{ID: "overlap", Rect: scene.Rect{Left: 90, Top: 90, Right: 120, Bottom: 120},
				Cells: []scene.Cell{{ID: "overlap:1"}}},
			{ID: "far", Rect: scene.Rect{Left: 500, Top: 500, Right: 520, Bottom: 520},
				Cells: []scene.Cell{{ID: "far:1"}}},
		},
		clusters: []scene.Cluster{
			{ID: "dir", Rect: scene.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}},
			{ID: "remote", Rect: scene.Rect{Left: 400, Top: 400, Right: 600, Bottom: 600}},
		},
		edges: [][2]string{
			{"inner:1", "far:1"},
			{"same:1", "overlap:1"},
		},
	})

	p := Compute(sc, nil, ClusterTarget("dir"))

	assert.Equal(t, []string{"inner:1 -> far:1"}, p.Kept.Edges)
	assert.Equal(t, MarkerOutgoing, p.Marker("inner:1 -> far:1"))
	assert.Equal(t, []string{"inner", "far"}, p.Kept.Nodes)
	assert.Equal(t, []string{"same", "overlap"}, p.Faded.Nodes)
	assert.Equal(t, []string{"dir", "remote"}, p.Kept.Clusters)
	assert.True(t, p.Marker("dir").Has(MarkerSelected))
}

func TestCompute_SharedIDAcrossKinds(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{
			{ID: "pkg", Rect: scene.NewRect(10, 10, 50, 50), Cells: []scene.Cell{{ID: "pkg:1"}}},
			{ID: "other", Rect: scene.NewRect(300, 10, 50, 50), Cells: []scene.Cell{{ID: "other:1"}}},
		},
		clusters: []scene.Cluster{{ID: "pkg", Rect: scene.NewRect(0, 0, 100, 100)}},
	})

	p := Compute(sc, nil, ClusterTarget("pkg"))
	require.False(t, p.IsIdle(), "cluster shares its id with a node")
	assert.Equal(t, ClusterTarget("pkg"), p.Target)
	assert.Equal(t, []string{"pkg"}, p.Kept.Clusters)
	assert.Equal(t, []string{"pkg"}, p.Kept.Nodes)
	assert.Equal(t, []string{"other"}, p.Faded.Nodes)

	p = Compute(sc, nil, NodeTarget("pkg"))
	require.False(t, p.IsIdle())
	assert.Equal(t, NodeTarget("pkg"), p.Target)
}

func TestCompute_ClusterFadesWithoutKeptNodes(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes: []scene.Node{node("fileA", 0, "f1"), node("fileB", 5, "g1")},
		clusters: []scene.Cluster{
			{ID: "left", Rect: scene.NewRect(0, 0, 150, 150)},
			{ID: "right", Rect: scene.NewRect(1000, 0, 150, 150)},
		},
	})

	p := Compute(sc, nil, NodeTarget("fileA"))
	assert.Equal(t, []string{"left"}, p.Kept.Clusters)
	assert.Equal(t, []string{"right"}, p.Faded.Clusters)
}

func TestCompute_IdleAndUnknown(t *testing.T) {
	sc := buildScene(t, sceneSpec{
		nodes:    []scene.Node{node("fileA", 0, "f1"), node("fileB", 1, "g1")},
		edges:    [][2]string{{"fileA:f1", "fileB:g1"}},
		clusters: []scene.Cluster{{ID: "all", Rect: scene.NewRect(0, 0, 1000, 1000)}},
	})

	idle := Compute(sc, nil, Target{})
	assert.True(t, idle.IsIdle())
	assert.Empty(t, idle.Markers)
	assert.Zero(t, idle.Faded.Len())
	assert.Equal(t, []string{"all", "fileA", "fileB", "fileA:f1 -> fileB:g1"}, idle.DrawOrder())

	tests := []struct {
		name string
		t    Target
	}{
		{"unknown node", NodeTarget("ghost")},
		{"unknown cell", CellTarget("fileA:ghost")},
		{"kind mismatch", NodeTarget("fileA:f1")},
		{"empty id", Target{Kind: scene.ElementNode}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, idle, Compute(sc, nil, tt.t))
		})
	}
}

func TestPartition_DrawOrderPutsFadedBelow(t *testing.T) {
	sc := threeFiles(t)
	p := Compute(sc, nil, NodeTarget("fileA"))

	assert.Equal(t, []string{
		"fileC",
		"fileB:g1 -> fileC:c1",
		"fileA", "fileB",
		"fileA:f1 -> fileB:g1",
	}, p.DrawOrder())
}

func TestEngine_StateMachine(t *testing.T) {
	ctx := context.Background()
	sc := threeFiles(t)
	e := NewEngine(sc, nil)

	assert.Equal(t, PhaseIdle, e.State().Phase)

	first := e.Select(ctx, NodeTarget("fileA"))
	assert.Equal(t, PhaseHighlighted, e.State().Phase)
	assert.Equal(t, NodeTarget("fileA"), e.State().Target)

	again := e.Select(ctx, NodeTarget("fileA"))
	assert.Equal(t, first, again, "repeat selection is deterministic")

	byID := e.SelectID(ctx, "fileA:f1 -> fileB:g1")
	assert.Equal(t, EdgeTarget("fileA:f1 -> fileB:g1"), byID.Target)

	once := e.Clear(ctx)
	stateOnce := e.State()
	twice := e.Clear(ctx)
	assert.Equal(t, once, twice)
	assert.Equal(t, stateOnce, e.State())
	assert.Equal(t, PhaseIdle, e.State().Phase)

	e.Select(ctx, NodeTarget("fileB"))
	e.SelectID(ctx, "does-not-exist")
	assert.Equal(t, PhaseIdle, e.State().Phase, "unknown id drops to idle")
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(threeFiles(t), nil)
	e.Select(ctx, NodeTarget("fileA"))

	next := chain(t, "a:A")
	e.Reset(next, nil)

	assert.Equal(t, PhaseIdle, e.State().Phase)
	assert.Equal(t, "a:A", e.State().Focus)
	assert.Same(t, next, e.Scene())
	assert.True(t, e.Partition().IsIdle())
}

func TestTarget_JSON(t *testing.T) {
	data, err := json.Marshal(CellTarget("a:1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"cell","id":"a:1"}`, string(data))

	var got Target
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"cluster","id":"c"}`), &got))
	assert.Equal(t, ClusterTarget("c"), got)

	err = json.Unmarshal([]byte(`{"kind":"widget","id":"c"}`), &got)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMarker_Names(t *testing.T) {
	m := MarkerIncoming | MarkerSelected
	assert.Equal(t, []string{"incoming", "selected"}, m.Names())
	assert.Equal(t, "incoming selected", m.String())
	assert.Empty(t, Marker(0).Names())
}
