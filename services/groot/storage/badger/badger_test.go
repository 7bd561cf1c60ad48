// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *CheckpointStore {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCheckpointStore(db)
}

// TestOpen_RequiresPath verifies persistent databases need a directory.
func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(DefaultConfig())
	assert.Error(t, err)
}

// TestOpen_Persistent verifies data survives a reopen.
func TestOpen_Persistent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.SyncWrites = false
	cfg.GCInterval = time.Hour

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.False(t, db.InMemory())
	assert.Equal(t, cfg.Path, db.Path())
	require.NoError(t, NewCheckpointStore(db).Save(context.Background(), Checkpoint{Source: "a.jsonl", Offset: 10}))
	require.NoError(t, db.Close())

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()
	cp, err := NewCheckpointStore(db2).Load(context.Background(), "a.jsonl")
	require.NoError(t, err)
	assert.Equal(t, int64(10), cp.Offset)
}

func TestCheckpointStore_SaveLoad(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Checkpoint{Source: "people.jsonl", Offset: 500, SnapshotID: 12}))

	cp, err := s.Load(ctx, "people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "people.jsonl", cp.Source)
	assert.Equal(t, int64(500), cp.Offset)
	assert.Equal(t, int64(12), cp.SnapshotID)
	assert.True(t, fixed.Equal(cp.UpdatedAt))

	require.NoError(t, s.Save(ctx, Checkpoint{Source: "people.jsonl", Offset: 1000, SnapshotID: 13}))
	cp, err = s.Load(ctx, "people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cp.Offset)
}

func TestCheckpointStore_Missing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save(context.Background(), Checkpoint{}), ErrEmptySource)
}

func TestCheckpointStore_DeleteAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"b.jsonl", "a.jsonl", "c.jsonl"} {
		require.NoError(t, s.Save(ctx, Checkpoint{Source: src}))
	}
	require.NoError(t, s.Delete(ctx, "b.jsonl"))
	require.NoError(t, s.Delete(ctx, "missing.jsonl"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.jsonl", list[0].Source)
	assert.Equal(t, "c.jsonl", list[1].Source)
}

func TestCheckpointStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, Checkpoint{Source: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestGCRunner_Lifecycle verifies Start and Stop are safe to repeat.
func TestGCRunner_Lifecycle(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, time.Second, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db.db, 0, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db.db, time.Second, 1.5, nil)
	assert.Error(t, err)

	r, err := NewGCRunner(db.db, 10*time.Millisecond, 0.5, nil)
	require.NoError(t, err)
	r.Start()
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	r.Stop()

	unstarted, err := NewGCRunner(db.db, time.Second, 0.5, nil)
	require.NoError(t, err)
	unstarted.Stop()
}

func TestDB_ViewUpdate(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	}))
	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("k"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("v"), val)
			return nil
		})
	}))
}
