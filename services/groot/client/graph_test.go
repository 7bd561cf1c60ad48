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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
	"github.com/AleutianAI/grootclient/services/groot/record"
	"github.com/AleutianAI/grootclient/services/groot/schema"
)

// recordingWriter keeps every envelope it is handed.
type recordingWriter struct {
	batches []*grootpb.BatchWriteRequest
	err     error
}

func (w *recordingWriter) BatchWrite(_ context.Context, req *grootpb.BatchWriteRequest) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.batches = append(w.batches, req)
	return int64(len(w.batches)), nil
}

func (w *recordingWriter) last(t *testing.T) *grootpb.BatchWriteRequest {
	t.Helper()
	require.NotEmpty(t, w.batches)
	return w.batches[len(w.batches)-1]
}

func edge(label string, src, dst int, props record.Properties) record.EdgeRecord {
	return record.EdgeRecord{
		Key: record.NewEdgeKey(label,
			record.NewVertexKey("person", map[string]any{"id": src}),
			record.NewVertexKey("person", map[string]any{"id": dst})),
		Properties: props,
	}
}

func TestGraph_VertexBatchesPreserveOrder(t *testing.T) {
	w := &recordingWriter{}
	g := NewGraph(nil, w)
	ctx := context.Background()

	snap, err := g.InsertVertices(ctx, []record.VertexRecord{
		vertex("person", 1, record.Properties{"name": "marko"}),
		vertex("person", 2, record.Properties{"name": "vadas"}),
		vertex("person", 3, record.Properties{"name": "josh"}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap)

	req := w.last(t)
	require.Len(t, req.WriteRequests, 3)
	for i, wr := range req.WriteRequests {
		assert.Equal(t, grootpb.WriteTypeInsert, wr.WriteType)
		key := wr.DataRecord.VertexRecordKey
		require.NotNil(t, key)
		assert.Equal(t, "person", key.Label)
		assert.Equal(t, map[string]string{"id": record.FormatValue(i + 1)}, key.PkProperties)
	}
	assert.Equal(t, "vadas", req.WriteRequests[1].DataRecord.Properties["name"])
}

func TestGraph_SingularFormsSendOneEntry(t *testing.T) {
	w := &recordingWriter{}
	g := NewGraph(nil, w)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (int64, error)
		want grootpb.WriteType
		edge bool
	}{
		{"InsertVertex", func() (int64, error) { return g.InsertVertex(ctx, vertex("person", 1, nil)) }, grootpb.WriteTypeInsert, false},
		{"UpdateVertexProperties", func() (int64, error) {
			return g.UpdateVertexProperties(ctx, vertex("person", 1, record.Properties{"age": 29}))
		}, grootpb.WriteTypeUpdate, false},
		{"DeleteVertex", func() (int64, error) {
			return g.DeleteVertex(ctx, record.NewVertexKey("person", map[string]any{"id": 1}))
		}, grootpb.WriteTypeDelete, false},
		{"InsertEdge", func() (int64, error) { return g.InsertEdge(ctx, edge("knows", 1, 2, nil)) }, grootpb.WriteTypeInsert, true},
		{"UpdateEdgeProperties", func() (int64, error) {
			return g.UpdateEdgeProperties(ctx, edge("knows", 1, 2, record.Properties{"weight": 0.5}))
		}, grootpb.WriteTypeUpdate, true},
		{"DeleteEdge", func() (int64, error) { return g.DeleteEdge(ctx, edge("knows", 1, 2, nil).Key) }, grootpb.WriteTypeDelete, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), snap)

			req := w.last(t)
			require.Len(t, req.WriteRequests, 1)
			wr := req.WriteRequests[0]
			assert.Equal(t, tt.want, wr.WriteType)
			if tt.edge {
				require.NotNil(t, wr.DataRecord.EdgeRecordKey)
				assert.Nil(t, wr.DataRecord.VertexRecordKey)
			} else {
				require.NotNil(t, wr.DataRecord.VertexRecordKey)
				assert.Nil(t, wr.DataRecord.EdgeRecordKey)
			}
		})
	}
}

func TestGraph_DeletesCarryEmptyProperties(t *testing.T) {
	w := &recordingWriter{}
	g := NewGraph(nil, w)
	ctx := context.Background()

	_, err := g.DeleteVertices(ctx, []record.VertexRecordKey{
		record.NewVertexKey("person", map[string]any{"id": 1}),
		record.NewVertexKey("person", map[string]any{"id": 2}),
	})
	require.NoError(t, err)
	for _, wr := range w.last(t).WriteRequests {
		assert.NotNil(t, wr.DataRecord.Properties)
		assert.Empty(t, wr.DataRecord.Properties)
	}

	_, err = g.DeleteEdges(ctx, []record.EdgeRecordKey{edge("knows", 1, 2, nil).Key})
	require.NoError(t, err)
	wr := w.last(t).WriteRequests[0]
	assert.NotNil(t, wr.DataRecord.Properties)
	assert.Empty(t, wr.DataRecord.Properties)
	assert.Equal(t, "knows", wr.DataRecord.EdgeRecordKey.Label)
	assert.Equal(t, map[string]string{"id": "1"}, wr.DataRecord.EdgeRecordKey.SrcVertexKey.PkProperties)
	assert.Equal(t, map[string]string{"id": "2"}, wr.DataRecord.EdgeRecordKey.DstVertexKey.PkProperties)
}

func TestGraph_EmptyBatchStillSent(t *testing.T) {
	w := &recordingWriter{}
	g := NewGraph(nil, w)

	_, err := g.UpdateEdgePropertiesBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, w.batches, 1)
	assert.Empty(t, w.batches[0].WriteRequests)
}

func TestGraph_PropagatesWriterError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGraph(nil, &recordingWriter{err: boom})

	_, err := g.InsertEdges(context.Background(), []record.EdgeRecord{edge("knows", 1, 2, nil)})
	assert.ErrorIs(t, err, boom)
}

func TestGraph_SchemaUnboundForPlainWriter(t *testing.T) {
	g := NewGraph(&grootpb.GraphDef{Version: 4}, &recordingWriter{})
	assert.Equal(t, int64(4), g.Schema().Version())

	g.Schema().DropVertexLabel("person")
	_, err := g.Schema().Update(context.Background())
	assert.ErrorIs(t, err, schema.ErrUnbound)
}
