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
	"fmt"
	"log/slog"
	"strings"
)

// ElementKind identifies which kind of scene element an id refers to.
type ElementKind int

const (
	// ElementNone means the id matches nothing selectable.
	ElementNone ElementKind = iota

	// ElementNode is a file/module box.
	ElementNode

	// ElementCell is a symbol box.
	ElementCell

	// ElementEdge is a call edge.
	ElementEdge

	// ElementCluster is a cluster label.
	ElementCluster
)

var elementKindNames = map[ElementKind]string{
	ElementNone:    "none",
	ElementNode:    "node",
	ElementCell:    "cell",
	ElementEdge:    "edge",
	ElementCluster: "cluster",
}

// String returns the lowercase name of the kind.
func (k ElementKind) String() string {
	if name, ok := elementKindNames[k]; ok {
		return name
	}
	return "none"
}

// ParseElementKind parses "node", "cell", "edge", "cluster" or "none".
func ParseElementKind(s string) (ElementKind, bool) {
	for k, name := range elementKindNames {
		if name == s {
			return k, true
		}
	}
	return ElementNone, false
}

// BuildStats summarises what Freeze kept and dropped.
type BuildStats struct {
	Nodes          int `json:"nodes"`
	Cells          int `json:"cells"`
	Edges          int `json:"edges"`
	Clusters       int `json:"clusters"`
	DroppedEdges   int `json:"dropped_edges"`
	DuplicateEdges int `json:"duplicate_edges"`
}

// cellEntry locates a cell inside the frozen scene.
type cellEntry struct {
	cell   *Cell
	node   string
	parent string
}

// Scene is an immutable snapshot of the rendered graph.
//
// Obtain one from Builder.Freeze. All accessors return shared data that
// callers must treat as read-only.
type Scene struct {
	nodes     []*Node
	nodeByID  map[string]*Node
	cells     map[string]cellEntry
	cellOrder []string
	edges     []Edge
	edgeByID  map[string]int
	clusters  []*Cluster
	clusterBy map[string]*Cluster
	focus     string
	index     *Index
	stats     BuildStats
}

// Nodes returns all nodes in render order.
func (s *Scene) Nodes() []*Node { return s.nodes }

// Node looks up a node by id.
func (s *Scene) Node(id string) (*Node, bool) {
	n, ok := s.nodeByID[id]
	return n, ok
}

// Cell looks up a cell by id at any nesting depth.
func (s *Scene) Cell(id string) (*Cell, bool) {
	e, ok := s.cells[id]
	if !ok {
		return nil, false
	}
	return e.cell, true
}

// CellIDs returns every cell id in depth-first render order.
func (s *Scene) CellIDs() []string { return s.cellOrder }

// ParentCell returns the id of the cell that directly encloses id, or ""
// for a top-level cell.
func (s *Scene) ParentCell(id string) string {
	return s.cells[id].parent
}

// Descendants returns the ids of every cell nested inside cellID, at any
// depth, in render order. The cell itself is not included.
func (s *Scene) Descendants(cellID string) []string {
	e, ok := s.cells[cellID]
	if !ok {
		return nil
	}
	var out []string
	var walk func(children []Cell)
	walk = func(children []Cell) {
		for i := range children {
			out = append(out, children[i].ID)
			walk(children[i].Children)
		}
	}
	walk(e.cell.Children)
	return out
}

// Edges returns all edges in render order.
func (s *Scene) Edges() []Edge { return s.edges }

// Edge looks up an edge by id.
func (s *Scene) Edge(id string) (Edge, bool) {
	i, ok := s.edgeByID[id]
	if !ok {
		return Edge{}, false
	}
	return s.edges[i], true
}

// Clusters returns all clusters, parents before children.
func (s *Scene) Clusters() []*Cluster { return s.clusters }

// Cluster looks up a cluster by id.
func (s *Scene) Cluster(id string) (*Cluster, bool) {
	c, ok := s.clusterBy[id]
	return c, ok
}

// Focus returns the focus cell id, or "" when the scene was not built in
// focus mode.
func (s *Scene) Focus() string { return s.focus }

// HasFocus reports whether the scene was built in focus mode.
func (s *Scene) HasFocus() bool { return s.focus != "" }

// Index returns the adjacency index built at freeze time.
func (s *Scene) Index() *Index { return s.index }

// Stats returns the build statistics.
func (s *Scene) Stats() BuildStats { return s.stats }

// Kind classifies an element id.
func (s *Scene) Kind(id string) ElementKind {
	if _, ok := s.nodeByID[id]; ok {
		return ElementNode
	}
	if _, ok := s.cells[id]; ok {
		return ElementCell
	}
	if _, ok := s.edgeByID[id]; ok {
		return ElementEdge
	}
	if _, ok := s.clusterBy[id]; ok {
		return ElementCluster
	}
	return ElementNone
}

// Has reports whether id names an element of the given kind. Unlike Kind
// it is exact when the same id is used by elements of different kinds,
// such as a node and a cluster both called "pkg".
func (s *Scene) Has(kind ElementKind, id string) bool {
	var ok bool
	switch kind {
	case ElementNode:
		_, ok = s.nodeByID[id]
	case ElementCell:
		_, ok = s.cells[id]
	case ElementEdge:
		_, ok = s.edgeByID[id]
	case ElementCluster:
		_, ok = s.clusterBy[id]
	}
	return ok
}

// Bounds returns the rect of a node, cell or cluster. Edges have no rect
// of their own; their bounds are the union of both endpoint cells.
func (s *Scene) Bounds(id string) (Rect, bool) {
	return s.BoundsOf(s.Kind(id), id)
}

// BoundsOf is Bounds for an element of a known kind.
func (s *Scene) BoundsOf(kind ElementKind, id string) (Rect, bool) {
	if !s.Has(kind, id) {
		return Rect{}, false
	}
	switch kind {
	case ElementNode:
		return s.nodeByID[id].Rect, true
	case ElementCell:
		return s.cells[id].cell.Rect, true
	case ElementCluster:
		return s.clusterBy[id].Rect, true
	case ElementEdge:
		e := s.edges[s.edgeByID[id]]
		from, okFrom := s.cells[e.From]
		to, okTo := s.cells[e.To]
		if !okFrom || !okTo {
			return Rect{}, false
		}
		return from.cell.Rect.Union(to.cell.Rect), true
	}
	return Rect{}, false
}

// Builder assembles a Scene.
//
// # Description
//
// Validates ids as elements are added and produces an immutable Scene on
// Freeze. Edges whose endpoints do not resolve to cells are dropped at
// Freeze time rather than rejected, because call data and symbol data
// are produced independently and may disagree.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Builder struct {
	nodes     []*Node
	nodeByID  map[string]*Node
	cells     map[string]cellEntry
	cellOrder []string
	edges     []Edge
	edgeIDs   map[string]bool
	clusters  []*Cluster
	clusterBy map[string]*Cluster
	focus     string
	frozen    bool
	logger    *slog.Logger
	stats     BuildStats
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used to report dropped elements.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		nodeByID:  make(map[string]*Node),
		cells:     make(map[string]cellEntry),
		edgeIDs:   make(map[string]bool),
		clusterBy: make(map[string]*Cluster),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddNode adds a node together with its nested cells.
//
// # Inputs
//
//   - n: The node. Its cells are deep-copied; the caller keeps ownership
//     of the original slices.
//
// # Outputs
//
//   - error: ErrSceneFrozen, ErrEmptyID, ErrInvalidID, ErrDuplicateID or
//     ErrCellOutsideNode (wrapped with the offending id).
func (b *Builder) AddNode(n Node) error {
	if b.frozen {
		return ErrSceneFrozen
	}
	if n.ID == "" {
		return ErrEmptyID
	}
	if strings.Contains(n.ID, CellSeparator) {
		return fmt.Errorf("node %q: %w", n.ID, ErrInvalidID)
	}
	if _, exists := b.nodeByID[n.ID]; exists {
		return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
	}

	node := n
	node.Cells = cloneCells(n.Cells)

	// Validate all cells before registering any of them.
	seen := make(map[string]bool)
	if err := b.checkCells(node.ID, node.Cells, seen); err != nil {
		return err
	}

	b.nodes = append(b.nodes, &node)
	b.nodeByID[node.ID] = &node
	b.registerCells(node.ID, "", node.Cells)
	return nil
}

func (b *Builder) checkCells(nodeID string, cells []Cell, seen map[string]bool) error {
	for i := range cells {
		id := cells[i].ID
		if id == "" {
			return fmt.Errorf("cell in node %q: %w", nodeID, ErrEmptyID)
		}
		if !BelongsTo(id, nodeID) {
			return fmt.Errorf("cell %q in node %q: %w", id, nodeID, ErrCellOutsideNode)
		}
		if _, exists := b.cells[id]; exists || seen[id] {
			return fmt.Errorf("cell %q: %w", id, ErrDuplicateID)
		}
		seen[id] = true
		if err := b.checkCells(nodeID, cells[i].Children, seen); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) registerCells(nodeID, parent string, cells []Cell) {
	for i := range cells {
		c := &cells[i]
		b.cells[c.ID] = cellEntry{cell: c, node: nodeID, parent: parent}
		b.cellOrder = append(b.cellOrder, c.ID)
		b.registerCells(nodeID, c.ID, c.Children)
	}
}

func cloneCells(cells []Cell) []Cell {
	if cells == nil {
		return nil
	}
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = c
		if c.Position != nil {
			p := *c.Position
			out[i].Position = &p
		}
		out[i].Children = cloneCells(c.Children)
	}
	return out
}

// AddEdge records a call edge. Edges with an empty endpoint are ignored
// and repeated edges are collapsed into one.
func (b *Builder) AddEdge(from, to string) error {
	if b.frozen {
		return ErrSceneFrozen
	}
	if from == "" || to == "" {
		b.stats.DroppedEdges++
		return nil
	}
	e := NewEdge(from, to)
	if b.edgeIDs[e.ID] {
		b.stats.DuplicateEdges++
		return nil
	}
	b.edgeIDs[e.ID] = true
	b.edges = append(b.edges, e)
	return nil
}

// AddCluster adds a cluster. A parent cluster must be added before its
// children.
func (b *Builder) AddCluster(c Cluster) error {
	if b.frozen {
		return ErrSceneFrozen
	}
	if c.ID == "" {
		return ErrEmptyID
	}
	if _, exists := b.clusterBy[c.ID]; exists {
		return fmt.Errorf("cluster %q: %w", c.ID, ErrDuplicateID)
	}
	if c.Parent != "" {
		if _, ok := b.clusterBy[c.Parent]; !ok {
			return fmt.Errorf("cluster %q parent %q: %w", c.ID, c.Parent, ErrUnknownCluster)
		}
	}
	cluster := c
	if c.LabelRect != nil {
		r := *c.LabelRect
		cluster.LabelRect = &r
	}
	b.clusters = append(b.clusters, &cluster)
	b.clusterBy[cluster.ID] = &cluster
	return nil
}

// SetFocus marks the scene as built in focus mode around cellID.
func (b *Builder) SetFocus(cellID string) {
	b.focus = cellID
}

// Freeze validates edges, builds the adjacency index and returns the
// read-only scene. The builder cannot be used afterwards.
func (b *Builder) Freeze() (*Scene, error) {
	if b.frozen {
		return nil, ErrSceneFrozen
	}
	b.frozen = true

	edges := make([]Edge, 0, len(b.edges))
	edgeByID := make(map[string]int, len(b.edges))
	for _, e := range b.edges {
		_, okFrom := b.cells[e.From]
		_, okTo := b.cells[e.To]
		if !okFrom || !okTo {
			b.stats.DroppedEdges++
			b.logger.Debug("dropping dangling edge", slog.String("edge", e.ID))
			continue
		}
		edgeByID[e.ID] = len(edges)
		edges = append(edges, e)
	}

	focus := b.focus
	if focus != "" {
		if _, ok := b.cells[focus]; !ok {
			b.logger.Warn("focus cell not found, focus mode disabled", slog.String("focus", focus))
			focus = ""
		}
	}

	b.stats.Nodes = len(b.nodes)
	b.stats.Cells = len(b.cells)
	b.stats.Edges = len(edges)
	b.stats.Clusters = len(b.clusters)

	return &Scene{
		nodes:     b.nodes,
		nodeByID:  b.nodeByID,
		cells:     b.cells,
		cellOrder: b.cellOrder,
		edges:     edges,
		edgeByID:  edgeByID,
		clusters:  b.clusters,
		clusterBy: b.clusterBy,
		focus:     focus,
		index:     BuildIndex(edges),
		stats:     b.stats,
	}, nil
}
