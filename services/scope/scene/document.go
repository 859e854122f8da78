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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the serialization of a graph document.
type Format string

const (
	// FormatJSON is a JSON document.
	FormatJSON Format = "json"

	// FormatYAML is a YAML document.
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Document is the on-disk form of a laid-out graph.
//
// Geometry is produced by an external layout engine. A document only
// carries it through.
type Document struct {
	// Focus is the root cell when the graph was built in focus mode.
	Focus string `json:"focus,omitempty" yaml:"focus,omitempty"`

	// Nodes are the file boxes, in render order.
	Nodes []NodeDoc `json:"nodes" yaml:"nodes"`

	// Edges are call edges between cells.
	Edges []EdgeDoc `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Clusters are optional node groupings. When empty, clusters are
	// derived from node paths by directory.
	Clusters []ClusterDoc `json:"clusters,omitempty" yaml:"clusters,omitempty"`
}

// NodeDoc is a node in a Document.
type NodeDoc struct {
	ID    string    `json:"id" yaml:"id"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`
	Path  string    `json:"path,omitempty" yaml:"path,omitempty"`
	Rect  Rect      `json:"rect" yaml:"rect"`
	Cells []CellDoc `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// CellDoc is a cell in a Document.
//
// When ID is empty and Position is set, the id is derived as
// "<nodeID>:<line>_<character>".
type CellDoc struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Label    string    `json:"label" yaml:"label"`
	Kind     CellKind  `json:"kind,omitempty" yaml:"kind,omitempty"`
	Rect     Rect      `json:"rect" yaml:"rect"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Children []CellDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// EdgeDoc is an edge in a Document. Either From and To, or ID in the
// "<from> -> <to>" form, must be present.
type EdgeDoc struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
}

// ClusterDoc is a possibly nested cluster in a Document.
type ClusterDoc struct {
	ID        string       `json:"id" yaml:"id"`
	Label     string       `json:"label,omitempty" yaml:"label,omitempty"`
	Rect      Rect         `json:"rect" yaml:"rect"`
	LabelRect *Rect        `json:"label_rect,omitempty" yaml:"label_rect,omitempty"`
	Children  []ClusterDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// Decode reads a document in the given format.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	return &doc, nil
}

// DecodeBytes decodes an in-memory document.
func DecodeBytes(data []byte, format Format) (*Document, error) {
	return Decode(bytes.NewReader(data), format)
}

// LoadFile reads and decodes a document, choosing the format by extension.
func LoadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph document: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Build converts the document into a frozen Scene.
//
// # Description
//
// Nodes and their cells are added first, then clusters (flattened
// parent-first), then edges. When the document declares no clusters,
// directory clusters are derived from node paths.
//
// # Outputs
//
//   - *Scene: The frozen scene.
//   - error: Wraps ErrInvalidDocument together with the builder error.
func (d *Document) Build(opts ...BuilderOption) (*Scene, error) {
	b := NewBuilder(opts...)

	nodes := make([]Node, 0, len(d.Nodes))
	for _, nd := range d.Nodes {
		n := Node{
			ID:    nd.ID,
			Label: nd.Label,
			Path:  nd.Path,
			Rect:  nd.Rect,
			Cells: cellsFromDoc(nd.ID, nd.Cells),
		}
		if err := b.AddNode(n); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		nodes = append(nodes, n)
	}

	clusters := flattenClusters(d.Clusters, "")
	if len(clusters) == 0 {
		clusters = ClustersByDirectory(nodes, DefaultClusterPadding)
	}
	for _, c := range clusters {
		if err := b.AddCluster(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	for _, ed := range d.Edges {
		from, to := ed.From, ed.To
		if from == "" && to == "" && ed.ID != "" {
			from, to, _ = ParseEdgeID(ed.ID)
		}
		if err := b.AddEdge(from, to); err != nil {
			return nil, err
		}
	}

	if d.Focus != "" {
		b.SetFocus(d.Focus)
	}
	return b.Freeze()
}

func cellsFromDoc(nodeID string, docs []CellDoc) []Cell {
	if len(docs) == 0 {
		return nil
	}
	cells := make([]Cell, 0, len(docs))
	for _, cd := range docs {
		id := cd.ID
		if id == "" && cd.Position != nil {
			id = CellID(nodeID, fmt.Sprintf("%d_%d", cd.Position.Line, cd.Position.Character))
		}
		cells = append(cells, Cell{
			ID:       id,
			Label:    cd.Label,
			Kind:     cd.Kind,
			Rect:     cd.Rect,
			Position: cd.Position,
			Children: cellsFromDoc(nodeID, cd.Children),
		})
	}
	return cells
}

func flattenClusters(docs []ClusterDoc, parent string) []Cluster {
	var out []Cluster
	for _, cd := range docs {
		out = append(out, Cluster{
			ID:        cd.ID,
			Label:     cd.Label,
			Rect:      cd.Rect,
			LabelRect: cd.LabelRect,
			Parent:    parent,
		})
		out = append(out, flattenClusters(cd.Children, cd.ID)...)
	}
	return out
}
