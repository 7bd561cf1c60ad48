// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package record defines the vertex and edge records written to a Groot
// store and renders them into batch write envelopes.
//
// Keys are value types. Constructors copy the maps they are given, so a
// caller reusing a map after building a key cannot change the key.
package record

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnknownWriteType is returned when parsing an unrecognised operation name.
	ErrUnknownWriteType = errors.New("unknown write type")

	// ErrUnknownEntityKind is returned when parsing an unrecognised entity kind.
	ErrUnknownEntityKind = errors.New("unknown entity kind")
)

// -----------------------------------------------------------------------------
// Kinds and Operations
// -----------------------------------------------------------------------------

// EntityKind says whether a write addresses a vertex or an edge.
type EntityKind int

const (
	// Vertex addresses a vertex by label and primary keys.
	Vertex EntityKind = iota
	// Edge addresses an edge by label and endpoint keys.
	Edge
)

// String returns "vertex" or "edge".
func (k EntityKind) String() string {
	switch k {
	case Vertex:
		return "vertex"
	case Edge:
		return "edge"
	default:
		return "unknown"
	}
}

// ParseEntityKind resolves "vertex" or "edge", case-insensitively.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertex", "v":
		return Vertex, nil
	case "edge", "e":
		return Edge, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntityKind, s)
	}
}

// WriteType is the mutation applied to a record.
type WriteType int

const (
	// Insert creates the record, or overwrites it if it exists.
	Insert WriteType = iota
	// Update merges the given properties into an existing record.
	Update
	// Delete removes the record.
	Delete
	// ClearProperty removes the named properties from a record.
	ClearProperty
)

// String returns the wire name, e.g. "INSERT".
func (w WriteType) String() string {
	return w.Proto().String()
}

// Proto maps w onto its wire enum.
func (w WriteType) Proto() grootpb.WriteType {
	switch w {
	case Insert:
		return grootpb.WriteTypeInsert
	case Update:
		return grootpb.WriteTypeUpdate
	case Delete:
		return grootpb.WriteTypeDelete
	case ClearProperty:
		return grootpb.WriteTypeClearProperty
	default:
		return grootpb.WriteTypeUnknown
	}
}

// ParseWriteType resolves an operation name such as "insert" or "DELETE".
func ParseWriteType(s string) (WriteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "insert":
		return Insert, nil
	case "update":
		return Update, nil
	case "delete":
		return Delete, nil
	case "clear", "clear_property":
		return ClearProperty, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWriteType, s)
	}
}

// -----------------------------------------------------------------------------
// Keys and Records
// -----------------------------------------------------------------------------

// Properties maps property names to values. Values are rendered with
// FormatValue when they are sent.
type Properties map[string]any

// VertexRecordKey identifies a vertex by label and primary key values.
type VertexRecordKey struct {
	Label       string
	PrimaryKeys map[string]any
}

// NewVertexKey returns a key for label with a private copy of pk.
func NewVertexKey(label string, pk map[string]any) VertexRecordKey {
	return VertexRecordKey{Label: label, PrimaryKeys: maps.Clone(pk)}
}

// EdgeRecordKey identifies an edge by label and its endpoint vertices.
// InnerID is zero unless one specific parallel edge is addressed.
type EdgeRecordKey struct {
	Label   string
	Src     VertexRecordKey
	Dst     VertexRecordKey
	InnerID int64
}

// NewEdgeKey returns a key for an edge of label between src and dst.
func NewEdgeKey(label string, src, dst VertexRecordKey) EdgeRecordKey {
	return EdgeRecordKey{
		Label: label,
		Src:   NewVertexKey(src.Label, src.PrimaryKeys),
		Dst:   NewVertexKey(dst.Label, dst.PrimaryKeys),
	}
}

// VertexRecord pairs a vertex key with the properties to write.
type VertexRecord struct {
	Key        VertexRecordKey
	Properties Properties
}

// EdgeRecord pairs an edge key with the properties to write.
type EdgeRecord struct {
	Key        EdgeRecordKey
	Properties Properties
}

func (k VertexRecordKey) proto() *grootpb.VertexRecordKey {
	return &grootpb.VertexRecordKey{
		Label:        k.Label,
		PkProperties: FormatMap(k.PrimaryKeys),
	}
}

func (k EdgeRecordKey) proto() *grootpb.EdgeRecordKey {
	return &grootpb.EdgeRecordKey{
		Label:        k.Label,
		SrcVertexKey: k.Src.proto(),
		DstVertexKey: k.Dst.proto(),
		InnerID:      k.InnerID,
	}
}
