// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema models the schema of a Groot graph and builds DDL batches
// against it.
//
// A Schema is loaded from a graph definition snapshot. Labels and edge
// relations are added or dropped through a builder; Request renders the
// pending operations as one batch and Update submits them and reloads the
// snapshot the server returns.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnbound is returned by Update on a schema with no Submitter.
	ErrUnbound = errors.New("schema is not bound to a connection")

	// ErrEmptyName is returned for a label or property without a name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrDuplicateProperty is returned when a label declares a property twice.
	ErrDuplicateProperty = errors.New("duplicate property")

	// ErrIncompleteRelation is returned for an edge relation missing an endpoint.
	ErrIncompleteRelation = errors.New("edge relation needs a source and a destination")

	// ErrUnknownDataType is returned by ParseDataType.
	ErrUnknownDataType = errors.New("unknown data type")
)

// -----------------------------------------------------------------------------
// Model
// -----------------------------------------------------------------------------

// Property is one declared property of a label.
type Property struct {
	ID         int32
	Name       string
	DataType   grootpb.DataType
	PrimaryKey bool
	Comment    string
}

// Relation is one (edge, source, destination) triple an edge label allows.
type Relation struct {
	Edge        string
	Source      string
	Destination string
}

// Label is a vertex or edge type.
type Label struct {
	ID         int32
	Name       string
	Kind       grootpb.TypeEnum
	Version    int32
	Properties []Property
	Relations  []Relation
}

// Property returns the property called name.
func (l *Label) Property(name string) (Property, bool) {
	for _, p := range l.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PrimaryKeys returns the names of the primary key properties, in
// declaration order.
func (l *Label) PrimaryKeys() []string {
	var out []string
	for _, p := range l.Properties {
		if p.PrimaryKey {
			out = append(out, p.Name)
		}
	}
	return out
}

// Submitter sends a DDL batch. *client.Connection satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req *grootpb.BatchSubmitRequest) (*grootpb.BatchSubmitResponse, error)
}

// Schema is a snapshot of a graph's labels plus the DDL operations queued
// against it.
//
// Thread Safety: Safe for concurrent use.
type Schema struct {
	mu        sync.RWMutex
	version   int64
	vertices  []*Label
	edges     []*Label
	pending   []op
	submitter Submitter
	logger    *slog.Logger
}

// FromGraphDef builds a Schema from a graph definition. A nil definition
// yields an empty schema.
func FromGraphDef(def *grootpb.GraphDef) *Schema {
	s := &Schema{logger: slog.Default().With(slog.String("component", "groot.schema"))}
	s.load(def)
	return s
}

// Bind attaches the Submitter used by Update and returns s.
func (s *Schema) Bind(sub Submitter) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitter = sub
	return s
}

// WithLogger replaces the logger and returns s.
func (s *Schema) WithLogger(logger *slog.Logger) *Schema {
	if logger == nil {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger.With(slog.String("component", "groot.schema"))
	return s
}

func (s *Schema) load(def *grootpb.GraphDef) {
	s.vertices, s.edges, s.version = nil, nil, 0
	if def == nil {
		return
	}
	s.version = def.Version

	byName := make(map[string]*Label, len(def.TypeDefs))
	for _, td := range def.TypeDefs {
		l := &Label{
			Name:    td.Label,
			Kind:    td.TypeEnum,
			Version: td.VersionID,
		}
		if td.LabelID != nil {
			l.ID = td.LabelID.ID
		}
		for _, p := range td.Props {
			l.Properties = append(l.Properties, Property{
				ID:         p.ID,
				Name:       p.Name,
				DataType:   p.DataType,
				PrimaryKey: p.PK,
				Comment:    p.Comment,
			})
		}
		// Older servers only fill pk_idxs.
		for _, idx := range td.PkIdxs {
			if int(idx) >= 0 && int(idx) < len(l.Properties) {
				l.Properties[idx].PrimaryKey = true
			}
		}
		byName[l.Name] = l
		if l.Kind == grootpb.TypeEdge {
			s.edges = append(s.edges, l)
		} else {
			s.vertices = append(s.vertices, l)
		}
	}

	for _, ek := range def.EdgeKinds {
		l, ok := byName[ek.EdgeLabel]
		if !ok || l.Kind != grootpb.TypeEdge {
			continue
		}
		l.Relations = append(l.Relations, Relation{
			Edge:        ek.EdgeLabel,
			Source:      ek.SrcVertexLabel,
			Destination: ek.DstVertexLabel,
		})
	}
}

// Version returns the schema version of the loaded snapshot.
func (s *Schema) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// VertexLabel returns the vertex label called name.
func (s *Schema) VertexLabel(name string) (*Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.vertices, name)
}

// EdgeLabel returns the edge label called name.
func (s *Schema) EdgeLabel(name string) (*Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.edges, name)
}

// VertexLabels returns all vertex labels in snapshot order.
func (s *Schema) VertexLabels() []*Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vertices)
}

// EdgeLabels returns all edge labels in snapshot order.
func (s *Schema) EdgeLabels() []*Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

func find(labels []*Label, name string) (*Label, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// String renders a readable summary, one label per line.
func (s *Schema) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "version %d\n", s.version)
	for _, l := range s.vertices {
		fmt.Fprintf(&b, "vertex %s(%s)\n", l.Name, describeProps(l))
	}
	for _, l := range s.edges {
		fmt.Fprintf(&b, "edge %s(%s)", l.Name, describeProps(l))
		for _, r := range l.Relations {
			fmt.Fprintf(&b, " %s->%s", r.Source, r.Destination)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func describeProps(l *Label) string {
	parts := make([]string, 0, len(l.Properties))
	for _, p := range l.Properties {
		part := p.Name + " " + p.DataType.String()
		if p.PrimaryKey {
			part += " pk"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// ParseDataType resolves a type name from YAML or the command line.
// Protocol names ("LONG", "STRING_LIST") and common aliases ("int64",
// "str", "float64") are accepted, case-insensitively.
func ParseDataType(name string) (grootpb.DataType, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if dt, ok := grootpb.DataTypeByName(n); ok && dt != grootpb.DataTypeUnknown {
		return dt, nil
	}
	switch n {
	case "BOOLEAN":
		return grootpb.DataTypeBool, nil
	case "INT32", "INTEGER":
		return grootpb.DataTypeInt, nil
	case "INT64":
		return grootpb.DataTypeLong, nil
	case "INT16":
		return grootpb.DataTypeShort, nil
	case "FLOAT32":
		return grootpb.DataTypeFloat, nil
	case "FLOAT64":
		return grootpb.DataTypeDouble, nil
	case "STR", "TEXT":
		return grootpb.DataTypeString, nil
	}
	return grootpb.DataTypeUnknown, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}
