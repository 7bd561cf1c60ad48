// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
	"github.com/AleutianAI/grootclient/services/groot/record"
	"github.com/AleutianAI/grootclient/services/groot/storage/badger"
)

type fakeWriter struct {
	batches []*grootpb.BatchWriteRequest
	failAt  int
}

func (w *fakeWriter) BatchWrite(_ context.Context, req *grootpb.BatchWriteRequest) (int64, error) {
	if w.failAt > 0 && len(w.batches)+1 == w.failAt {
		return 0, errors.New("unavailable")
	}
	w.batches = append(w.batches, req)
	return int64(100 + len(w.batches)), nil
}

type fakeFlusher struct {
	snapshot int64
	timeout  time.Duration
}

func (f *fakeFlusher) RemoteFlush(_ context.Context, snapshotID int64, timeout time.Duration) (bool, error) {
	f.snapshot, f.timeout = snapshotID, timeout
	return true, nil
}

func vertexLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `{"kind":"vertex","op":"insert","label":"person","pk":{"id":%d},"properties":{"name":"p%d"}}`+"\n", i, i)
	}
	return b.String()
}

func openCheckpoints(t *testing.T) *badger.CheckpointStore {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badger.NewCheckpointStore(db)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kind    record.EntityKind
		op      record.WriteType
		wantErr bool
	}{
		{"vertex defaults", `{"label":"person","pk":{"id":1}}`, record.Vertex, record.Insert, false},
		{"edge update", `{"kind":"edge","op":"update","label":"knows","src":{"label":"person","pk":{"id":1}},"dst":{"label":"person","pk":{"id":2}}}`, record.Edge, record.Update, false},
		{"vertex delete", `{"kind":"v","op":"DELETE","label":"person","pk":{"id":1}}`, record.Vertex, record.Delete, false},
		{"bad json", `{"label":`, 0, 0, true},
		{"missing label", `{"pk":{"id":1}}`, 0, 0, true},
		{"vertex without pk", `{"label":"person"}`, 0, 0, true},
		{"edge without dst", `{"kind":"edge","label":"knows","src":{"label":"person","pk":{"id":1}}}`, 0, 0, true},
		{"unknown op", `{"op":"upsert","label":"person","pk":{"id":1}}`, 0, 0, true},
		{"unknown kind", `{"kind":"face","label":"person","pk":{"id":1}}`, 0, 0, true},
		{"label with quote", `{"label":"per'son","pk":{"id":1}}`, 0, 0, true},
		{"bad property name", `{"label":"person","pk":{"id":1},"properties":{"first name":"x"}}`, 0, 0, true},
		{"bad endpoint label", `{"kind":"edge","label":"knows","src":{"label":"a b","pk":{"id":1}},"dst":{"label":"person","pk":{"id":2}}}`, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ParseLine([]byte(tt.line))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, entry.Kind)
			assert.Equal(t, tt.op, entry.Op)
		})
	}
}

func TestParseLine_KeepsLargeIntegers(t *testing.T) {
	entry, err := ParseLine([]byte(`{"label":"person","pk":{"id":9007199254740993}}`))
	require.NoError(t, err)

	req := record.NewBatch(entry)
	assert.Equal(t, "9007199254740993", req.WriteRequests[0].DataRecord.VertexRecordKey.PkProperties["id"])
}

func TestRun_BatchesInOrder(t *testing.T) {
	w := &fakeWriter{}
	l, err := New(w, Config{BatchSize: 2})
	require.NoError(t, err)

	res, err := l.Run(context.Background(), strings.NewReader(vertexLines(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Records)
	assert.Equal(t, int64(3), res.Batches)
	assert.Equal(t, int64(103), res.LastSnapshotID)

	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0].WriteRequests, 2)
	assert.Len(t, w.batches[2].WriteRequests, 1)
	assert.Equal(t, "1", w.batches[0].WriteRequests[0].DataRecord.VertexRecordKey.PkProperties["id"])
	assert.Equal(t, "5", w.batches[2].WriteRequests[0].DataRecord.VertexRecordKey.PkProperties["id"])
}

func TestRun_InvalidLines(t *testing.T) {
	input := vertexLines(1) + "not json\n\n" + vertexLines(1)

	t.Run("fail", func(t *testing.T) {
		l, err := New(&fakeWriter{}, Config{})
		require.NoError(t, err)
		_, err = l.Run(context.Background(), strings.NewReader(input))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("skip", func(t *testing.T) {
		w := &fakeWriter{}
		l, err := New(w, Config{SkipInvalid: true})
		require.NoError(t, err)
		res, err := l.Run(context.Background(), strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Skipped)
		assert.Equal(t, int64(2), res.Records)
		assert.Equal(t, int64(1), res.Batches)
	})
}

func TestRun_CheckpointAndResume(t *testing.T) {
	ctx := context.Background()
	store := openCheckpoints(t)
	cfg := Config{Source: "people.jsonl", BatchSize: 2, Resume: true}

	first := &fakeWriter{failAt: 2}
	l, err := New(first, cfg, WithCheckpoints(store))
	require.NoError(t, err)
	res, err := l.Run(ctx, strings.NewReader(vertexLines(5)))
	require.Error(t, err)
	assert.Equal(t, int64(2), res.Records)

	cp, err := store.Load(ctx, "people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cp.Offset)
	assert.Equal(t, int64(101), cp.SnapshotID)

	second := &fakeWriter{}
	l, err = New(second, cfg, WithCheckpoints(store))
	require.NoError(t, err)
	res, err = l.Run(ctx, strings.NewReader(vertexLines(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.ResumedFrom)
	assert.Equal(t, int64(3), res.Records)
	require.Len(t, second.batches, 2)
	assert.Equal(t, "3", second.batches[0].WriteRequests[0].DataRecord.VertexRecordKey.PkProperties["id"])

	cp, err = store.Load(ctx, "people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, int64(5), cp.Offset)
}

func TestRun_Flush(t *testing.T) {
	f := &fakeFlusher{}
	l, err := New(&fakeWriter{}, Config{Flush: true, FlushTimeout: time.Second}, WithFlusher(f))
	require.NoError(t, err)

	res, err := l.Run(context.Background(), strings.NewReader(vertexLines(3)))
	require.NoError(t, err)
	assert.True(t, res.Flushed)
	assert.Equal(t, int64(101), f.snapshot)
	assert.Equal(t, time.Second, f.timeout)
}

func TestRun_RateLimitHonorsContext(t *testing.T) {
	l, err := New(&fakeWriter{}, Config{BatchSize: 1, Rate: 0.001, Burst: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := l.Run(ctx, strings.NewReader(vertexLines(3)))
	require.Error(t, err)
	assert.Equal(t, int64(1), res.Batches)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
	_, err = New(&fakeWriter{}, Config{Rate: -1})
	assert.Error(t, err)
	_, err = New(&fakeWriter{}, Config{}, WithCheckpoints(openCheckpoints(t)))
	assert.Error(t, err)
}
