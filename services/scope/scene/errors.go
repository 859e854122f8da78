// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scene holds the rendered call graph as an immutable snapshot.
//
// A scene contains Nodes (files), Cells (symbols nested in nodes and in
// other cells), directed Edges between cells, and Clusters that group
// nodes geometrically. Geometry comes from an external layout engine; the
// scene only stores it.
//
// # Lifecycle
//
//  1. Create a Builder with NewBuilder()
//  2. Add nodes, edges and clusters
//  3. Call Freeze() to obtain a read-only *Scene
//  4. Derive the adjacency Index with BuildIndex (Scene.Index caches one)
//
// A graph reload never mutates an existing Scene. It builds a new one.
//
// # Identity
//
// A cell id is always "<nodeID>:<suffix>". OwnerNode recovers the node id
// from any cell id and is the only way the rest of the system maps cells
// back to nodes.
//
// # Thread Safety
//
// Builder is not safe for concurrent use. A frozen Scene and its Index are
// read-only and may be shared between goroutines.
package scene

import "errors"

// Sentinel errors for scene construction.
var (
	// ErrSceneFrozen is returned when adding to a builder that was frozen.
	ErrSceneFrozen = errors.New("scene is frozen and cannot be modified")

	// ErrEmptyID is returned when a node, cell or cluster has no id.
	ErrEmptyID = errors.New("element id is empty")

	// ErrInvalidID is returned when a node id contains CellSeparator.
	// OwnerNode could not recover such a node from its cell ids.
	ErrInvalidID = errors.New("node id must not contain the cell separator")

	// ErrDuplicateID is returned when an id is used by two elements.
	ErrDuplicateID = errors.New("duplicate element id")

	// ErrCellOutsideNode is returned when a cell id does not start with
	// its owning node id followed by ':'.
	ErrCellOutsideNode = errors.New("cell id does not belong to its node")

	// ErrUnknownCluster is returned when a cluster names a parent that was
	// never added.
	ErrUnknownCluster = errors.New("unknown parent cluster")

	// ErrInvalidDocument is returned when a graph document cannot be decoded.
	ErrInvalidDocument = errors.New("invalid graph document")

	// ErrUnknownFormat is returned for graph files with an unsupported extension.
	ErrUnknownFormat = errors.New("unsupported graph document format")
)
