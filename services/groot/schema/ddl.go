// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

// formatVersion is the BatchSubmitRequest format understood by Groot.
const formatVersion = 1

// op is one queued DDL operation.
type op interface {
	requests() ([]*grootpb.DdlRequest, error)
}

// =============================================================================
// Label Builder
// =============================================================================

// LabelBuilder declares a new vertex or edge label. It is queued on the
// schema when created, and the properties and relations added to it are
// read when the batch is rendered.
//
// Thread Safety: A builder must not be modified concurrently with Request
// or Update.
type LabelBuilder struct {
	name      string
	kind      grootpb.TypeEnum
	props     []Property
	relations []Relation
	source    string
}

// AddProperty declares a property. pk marks it as part of the primary key.
func (b *LabelBuilder) AddProperty(name string, dt grootpb.DataType, pk bool) *LabelBuilder {
	b.props = append(b.props, Property{Name: name, DataType: dt, PrimaryKey: pk})
	return b
}

// AddPrimaryKey declares a primary key property.
func (b *LabelBuilder) AddPrimaryKey(name string, dt grootpb.DataType) *LabelBuilder {
	return b.AddProperty(name, dt, true)
}

// Source sets the source vertex label of the next relation. Edge labels only.
func (b *LabelBuilder) Source(label string) *LabelBuilder {
	b.source = label
	return b
}

// Destination completes a relation started with Source. Edge labels only.
func (b *LabelBuilder) Destination(label string) *LabelBuilder {
	b.relations = append(b.relations, Relation{Edge: b.name, Source: b.source, Destination: label})
	b.source = ""
	return b
}

func (b *LabelBuilder) requests() ([]*grootpb.DdlRequest, error) {
	if b.name == "" {
		return nil, fmt.Errorf("label: %w", ErrEmptyName)
	}

	td := &grootpb.TypeDef{Label: b.name, TypeEnum: b.kind}
	seen := make(map[string]bool, len(b.props))
	for i, p := range b.props {
		if p.Name == "" {
			return nil, fmt.Errorf("property of %s: %w", b.name, ErrEmptyName)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateProperty, b.name, p.Name)
		}
		seen[p.Name] = true
		td.Props = append(td.Props, &grootpb.PropertyDef{
			Name:     p.Name,
			DataType: p.DataType,
			PK:       p.PrimaryKey,
			Comment:  p.Comment,
		})
		if p.PrimaryKey {
			td.PkIdxs = append(td.PkIdxs, int32(i))
		}
	}

	if b.kind != grootpb.TypeEdge {
		return []*grootpb.DdlRequest{{CreateVertexType: &grootpb.CreateVertexTypeRequest{TypeDef: td}}}, nil
	}

	if b.source != "" {
		return nil, fmt.Errorf("%s: %w", b.name, ErrIncompleteRelation)
	}
	out := []*grootpb.DdlRequest{{CreateEdgeType: &grootpb.CreateEdgeTypeRequest{TypeDef: td}}}
	for _, r := range b.relations {
		req, err := relationOp{rel: r}.requests()
		if err != nil {
			return nil, err
		}
		out = append(out, req...)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Simple operations
// -----------------------------------------------------------------------------

type relationOp struct {
	rel    Relation
	remove bool
}

func (o relationOp) requests() ([]*grootpb.DdlRequest, error) {
	r := o.rel
	if r.Edge == "" {
		return nil, fmt.Errorf("edge relation: %w", ErrEmptyName)
	}
	if r.Source == "" || r.Destination == "" {
		return nil, fmt.Errorf("%s: %w", r.Edge, ErrIncompleteRelation)
	}
	if o.remove {
		return []*grootpb.DdlRequest{{RemoveEdgeKind: &grootpb.RemoveEdgeKindRequest{
			EdgeLabel: r.Edge, SrcVertexLabel: r.Source, DstVertexLabel: r.Destination,
		}}}, nil
	}
	return []*grootpb.DdlRequest{{AddEdgeKind: &grootpb.AddEdgeKindRequest{
		EdgeLabel: r.Edge, SrcVertexLabel: r.Source, DstVertexLabel: r.Destination,
	}}}, nil
}

type dropOp struct {
	label string
	kind  grootpb.TypeEnum
}

func (o dropOp) requests() ([]*grootpb.DdlRequest, error) {
	if o.label == "" {
		return nil, fmt.Errorf("drop: %w", ErrEmptyName)
	}
	if o.kind == grootpb.TypeEdge {
		return []*grootpb.DdlRequest{{DropEdgeType: &grootpb.DropEdgeTypeRequest{Label: o.label}}}, nil
	}
	return []*grootpb.DdlRequest{{DropVertexType: &grootpb.DropVertexTypeRequest{Label: o.label}}}, nil
}

// =============================================================================
// Schema operations
// =============================================================================

// AddVertexLabel queues the creation of a vertex label.
func (s *Schema) AddVertexLabel(name string) *LabelBuilder {
	return s.queueLabel(name, grootpb.TypeVertex)
}

// AddEdgeLabel queues the creation of an edge label. Relations are added
// with Source/Destination on the returned builder.
func (s *Schema) AddEdgeLabel(name string) *LabelBuilder {
	return s.queueLabel(name, grootpb.TypeEdge)
}

func (s *Schema) queueLabel(name string, kind grootpb.TypeEnum) *LabelBuilder {
	b := &LabelBuilder{name: name, kind: kind}
	s.mu.Lock()
	s.pending = append(s.pending, b)
	s.mu.Unlock()
	return b
}

// AddEdgeRelation queues a new (src, dst) relation for an existing edge label.
func (s *Schema) AddEdgeRelation(edge, src, dst string) {
	s.queue(relationOp{rel: Relation{Edge: edge, Source: src, Destination: dst}})
}

// DropEdgeRelation queues the removal of a relation from an edge label.
func (s *Schema) DropEdgeRelation(edge, src, dst string) {
	s.queue(relationOp{rel: Relation{Edge: edge, Source: src, Destination: dst}, remove: true})
}

// DropVertexLabel queues the removal of a vertex label.
func (s *Schema) DropVertexLabel(name string) {
	s.queue(dropOp{label: name, kind: grootpb.TypeVertex})
}

// DropEdgeLabel queues the removal of an edge label. Its relations must be
// dropped first.
func (s *Schema) DropEdgeLabel(name string) {
	s.queue(dropOp{label: name, kind: grootpb.TypeEdge})
}

func (s *Schema) queue(o op) {
	s.mu.Lock()
	s.pending = append(s.pending, o)
	s.mu.Unlock()
}

// Pending returns the number of queued operations.
func (s *Schema) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Request renders the queued operations, in queue order, as one batch.
//
// Outputs:
//
//	*grootpb.BatchSubmitRequest - The batch. Value is empty when nothing is queued.
//	error - Non-nil if a queued operation is incomplete.
func (s *Schema) Request() (*grootpb.BatchSubmitRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestLocked()
}

func (s *Schema) requestLocked() (*grootpb.BatchSubmitRequest, error) {
	req := &grootpb.BatchSubmitRequest{FormatVersion: formatVersion}
	for _, o := range s.pending {
		reqs, err := o.requests()
		if err != nil {
			return nil, err
		}
		req.Value = append(req.Value, reqs...)
	}
	return req, nil
}

// Update submits the queued operations and reloads the schema.
//
// Description:
//
//	Renders the queue, submits it through the bound Submitter, clears the
//	queue and reloads the labels from the graph definition in the response.
//	The queue is kept when rendering or submission fails. With nothing
//	queued, no request is sent.
//
// Outputs:
//
//	int64 - DDL snapshot id reported by the server. Zero when nothing was sent.
//	error - ErrUnbound, a rendering error, or the RPC error unchanged.
func (s *Schema) Update(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitter == nil {
		return 0, ErrUnbound
	}
	if len(s.pending) == 0 {
		return 0, nil
	}
	req, err := s.requestLocked()
	if err != nil {
		return 0, err
	}

	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		return 0, err
	}
	s.pending = nil
	if resp.GraphDef != nil {
		s.load(resp.GraphDef)
	}
	s.logger.Info("schema updated",
		slog.Int("operations", len(req.Value)),
		slog.Int64("ddl_snapshot_id", resp.DdlSnapshotID),
		slog.Int64("version", s.version),
	)
	return resp.DdlSnapshotID, nil
}
