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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
)

const checkpointPrefix = "checkpoint/"

var (
	// ErrNotFound is returned by Load when no checkpoint exists for a source.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrEmptySource is returned for checkpoints without a source name.
	ErrEmptySource = errors.New("checkpoint source must not be empty")
)

// Checkpoint records how far a bulk load got.
type Checkpoint struct {
	// Source identifies the input, usually its absolute path.
	Source string `json:"source"`

	// Offset is the number of input records committed so far.
	Offset int64 `json:"offset"`

	// SnapshotID is the snapshot id of the last committed batch.
	SnapshotID int64 `json:"snapshot_id"`

	// UpdatedAt is when the checkpoint was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckpointStore keeps one Checkpoint per source.
//
// Thread Safety: Safe for concurrent use.
type CheckpointStore struct {
	db  *DB
	now func() time.Time
}

// NewCheckpointStore returns a store backed by db.
func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db, now: time.Now}
}

func checkpointKey(source string) []byte {
	return []byte(checkpointPrefix + source)
}

// Save writes cp, replacing any earlier checkpoint for the same source.
// A zero UpdatedAt is set to the current time.
func (s *CheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	if cp.Source == "" {
		return ErrEmptySource
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = s.now().UTC()
	}
	data, err := sonic.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint %s: %w", cp.Source, err)
	}
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(cp.Source), data)
	})
}

// Load returns the checkpoint for source, or ErrNotFound.
func (s *CheckpointStore) Load(ctx context.Context, source string) (Checkpoint, error) {
	var cp Checkpoint
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return sonic.Unmarshal(val, &cp)
		})
	})
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint %s: %w", source, err)
	}
	return cp, nil
}

// Delete removes the checkpoint for source. Deleting a missing checkpoint
// is not an error.
func (s *CheckpointStore) Delete(ctx context.Context, source string) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(checkpointKey(source))
	})
}

// List returns every stored checkpoint ordered by source.
func (s *CheckpointStore) List(ctx context.Context) ([]Checkpoint, error) {
	var out []Checkpoint
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(checkpointPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var cp Checkpoint
			if err := item.Value(func(val []byte) error {
				return sonic.Unmarshal(val, &cp)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", strings.TrimPrefix(string(item.Key()), checkpointPrefix), err)
			}
			out = append(out, cp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return out, nil
}
