// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grootpb

import (
	"maps"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// PartitionState is the storage usage of one store partition.
type PartitionState struct {
	TotalSpace int64 // field 1, totalSpace
	UsedSpace  int64 // field 2, usedSpace
}

func (m *PartitionState) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.TotalSpace)
	e.int64(2, m.UsedSpace)
	return e.buf
}

func (m *PartitionState) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.TotalSpace = f.int64()
		case f.is(2, protowire.VarintType):
			m.UsedSpace = f.int64()
		}
		return nil
	})
}

// GetStoreStateRequest asks for per-partition state.
type GetStoreStateRequest struct{}

func (m *GetStoreStateRequest) appendWire(b []byte) []byte { return b }

func (m *GetStoreStateRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(field) error { return nil })
}

// GetStoreStateResponse maps partition id to its state.
type GetStoreStateResponse struct {
	PartitionStates map[int32]*PartitionState // field 1, partitionStates
}

func (m *GetStoreStateResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	for _, id := range slices.Sorted(maps.Keys(m.PartitionStates)) {
		entry := encoder{}
		entry.buf = protowire.AppendTag(entry.buf, 1, protowire.VarintType)
		entry.buf = protowire.AppendVarint(entry.buf, uint64(int64(id)))
		state := m.PartitionStates[id]
		if state == nil {
			state = &PartitionState{}
		}
		entry.message(2, state)
		e.buf = protowire.AppendTag(e.buf, 1, protowire.BytesType)
		e.buf = protowire.AppendBytes(e.buf, entry.buf)
	}
	return e.buf
}

func (m *GetStoreStateResponse) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if !f.is(1, protowire.BytesType) {
			return nil
		}
		k, v, err := decodeMapEntry(f.bytes)
		if err != nil {
			return err
		}
		state := &PartitionState{}
		if err := state.unmarshalWire(v.bytes); err != nil {
			return err
		}
		if m.PartitionStates == nil {
			m.PartitionStates = make(map[int32]*PartitionState)
		}
		m.PartitionStates[k.int32()] = state
		return nil
	})
}

// CompactDBRequest triggers a store compaction.
type CompactDBRequest struct{}

func (m *CompactDBRequest) appendWire(b []byte) []byte { return b }

func (m *CompactDBRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(field) error { return nil })
}

// CompactDBResponse acknowledges a compaction.
type CompactDBResponse struct {
	Success bool // field 1
}

func (m *CompactDBResponse) appendWire(b []byte) []byte {
	return appendSuccess(b, m.Success)
}

func (m *CompactDBResponse) unmarshalWire(b []byte) error {
	return decodeSuccess(b, &m.Success)
}

// ReopenSecondaryRequest asks secondary instances to catch up with the primary.
type ReopenSecondaryRequest struct{}

func (m *ReopenSecondaryRequest) appendWire(b []byte) []byte { return b }

func (m *ReopenSecondaryRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(field) error { return nil })
}

// ReopenSecondaryResponse acknowledges a secondary reopen.
type ReopenSecondaryResponse struct {
	Success bool // field 1
}

func (m *ReopenSecondaryResponse) appendWire(b []byte) []byte {
	return appendSuccess(b, m.Success)
}

func (m *ReopenSecondaryResponse) unmarshalWire(b []byte) error {
	return decodeSuccess(b, &m.Success)
}

// ReplayRecordsRequestV2 is the administrative-service form of a replay.
type ReplayRecordsRequestV2 struct {
	Offset    int64 // field 1
	Timestamp int64 // field 2
}

func (m *ReplayRecordsRequestV2) appendWire(b []byte) []byte {
	return appendReplay(b, m.Offset, m.Timestamp)
}

func (m *ReplayRecordsRequestV2) unmarshalWire(b []byte) error {
	return decodeReplay(b, &m.Offset, &m.Timestamp)
}

// ReplayRecordsResponseV2 returns the snapshot id reached by the replay.
type ReplayRecordsResponseV2 struct {
	SnapshotID int64 // field 1, snapshot_id
}

func (m *ReplayRecordsResponseV2) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.SnapshotID)
	return e.buf
}

func (m *ReplayRecordsResponseV2) unmarshalWire(b []byte) error {
	return decodeLastSnapshot(b, &m.SnapshotID)
}
