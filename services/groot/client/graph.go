// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
	"github.com/AleutianAI/grootclient/services/groot/record"
	"github.com/AleutianAI/grootclient/services/groot/schema"
)

// Writer sends one write envelope and returns its snapshot id.
//
// *Connection implements Writer.
type Writer interface {
	BatchWrite(ctx context.Context, req *grootpb.BatchWriteRequest) (int64, error)
}

var _ Writer = (*Connection)(nil)

// Graph turns record-level writes into batch envelopes for one Writer.
//
// Every method sends exactly one envelope and returns the snapshot id the
// store assigned to it. Batches are sent as given, including empty ones.
//
// Thread Safety: Safe for concurrent use if the Writer is.
type Graph struct {
	writer Writer
	schema *schema.Schema
}

// NewGraph binds def and w. If w can also submit DDL, the returned schema is
// bound to it so Schema().Update works.
func NewGraph(def *grootpb.GraphDef, w Writer) *Graph {
	s := schema.FromGraphDef(def)
	if sub, ok := w.(schema.Submitter); ok {
		s.Bind(sub)
	}
	return &Graph{writer: w, schema: s}
}

func (g *Graph) withLogger(logger *slog.Logger) *Graph {
	g.schema.WithLogger(logger)
	return g
}

// Schema returns the schema snapshot the graph was created with.
func (g *Graph) Schema() *schema.Schema {
	return g.schema
}

// -----------------------------------------------------------------------------
// Vertices
// -----------------------------------------------------------------------------

// InsertVertex inserts one vertex.
func (g *Graph) InsertVertex(ctx context.Context, v record.VertexRecord) (int64, error) {
	return g.InsertVertices(ctx, []record.VertexRecord{v})
}

// InsertVertices inserts vertices in one batch.
func (g *Graph) InsertVertices(ctx context.Context, vs []record.VertexRecord) (int64, error) {
	return g.writer.BatchWrite(ctx, record.VertexWriteRequests(vs, record.Insert))
}

// UpdateVertexProperties updates the given properties of one vertex.
func (g *Graph) UpdateVertexProperties(ctx context.Context, v record.VertexRecord) (int64, error) {
	return g.UpdateVertexPropertiesBatch(ctx, []record.VertexRecord{v})
}

// UpdateVertexPropertiesBatch updates vertices in one batch.
func (g *Graph) UpdateVertexPropertiesBatch(ctx context.Context, vs []record.VertexRecord) (int64, error) {
	return g.writer.BatchWrite(ctx, record.VertexWriteRequests(vs, record.Update))
}

// DeleteVertex deletes one vertex.
func (g *Graph) DeleteVertex(ctx context.Context, key record.VertexRecordKey) (int64, error) {
	return g.DeleteVertices(ctx, []record.VertexRecordKey{key})
}

// DeleteVertices deletes vertices in one batch.
func (g *Graph) DeleteVertices(ctx context.Context, keys []record.VertexRecordKey) (int64, error) {
	vs := make([]record.VertexRecord, len(keys))
	for i, k := range keys {
		vs[i] = record.VertexRecord{Key: k}
	}
	return g.writer.BatchWrite(ctx, record.VertexWriteRequests(vs, record.Delete))
}

// -----------------------------------------------------------------------------
// Edges
// -----------------------------------------------------------------------------

// InsertEdge inserts one edge.
func (g *Graph) InsertEdge(ctx context.Context, e record.EdgeRecord) (int64, error) {
	return g.InsertEdges(ctx, []record.EdgeRecord{e})
}

// InsertEdges inserts edges in one batch.
func (g *Graph) InsertEdges(ctx context.Context, es []record.EdgeRecord) (int64, error) {
	return g.writer.BatchWrite(ctx, record.EdgeWriteRequests(es, record.Insert))
}

// UpdateEdgeProperties updates the given properties of one edge.
func (g *Graph) UpdateEdgeProperties(ctx context.Context, e record.EdgeRecord) (int64, error) {
	return g.UpdateEdgePropertiesBatch(ctx, []record.EdgeRecord{e})
}

// UpdateEdgePropertiesBatch updates edges in one batch.
func (g *Graph) UpdateEdgePropertiesBatch(ctx context.Context, es []record.EdgeRecord) (int64, error) {
	return g.writer.BatchWrite(ctx, record.EdgeWriteRequests(es, record.Update))
}

// DeleteEdge deletes one edge.
func (g *Graph) DeleteEdge(ctx context.Context, key record.EdgeRecordKey) (int64, error) {
	return g.DeleteEdges(ctx, []record.EdgeRecordKey{key})
}

// DeleteEdges deletes edges in one batch.
func (g *Graph) DeleteEdges(ctx context.Context, keys []record.EdgeRecordKey) (int64, error) {
	es := make([]record.EdgeRecord, len(keys))
	for i, k := range keys {
		es[i] = record.EdgeRecord{Key: k}
	}
	return g.writer.BatchWrite(ctx, record.EdgeWriteRequests(es, record.Delete))
}
