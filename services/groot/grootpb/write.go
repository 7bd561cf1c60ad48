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
	"google.golang.org/protobuf/encoding/protowire"
)

// =============================================================================
// Write Types
// =============================================================================

// WriteType is the mutation applied by one write request.
type WriteType int32

const (
	WriteTypeUnknown       WriteType = 0
	WriteTypeInsert        WriteType = 1
	WriteTypeUpdate        WriteType = 2
	WriteTypeDelete        WriteType = 3
	WriteTypeClearProperty WriteType = 4
)

// String returns the protocol name of the write type.
func (t WriteType) String() string {
	switch t {
	case WriteTypeInsert:
		return "INSERT"
	case WriteTypeUpdate:
		return "UPDATE"
	case WriteTypeDelete:
		return "DELETE"
	case WriteTypeClearProperty:
		return "CLEAR_PROPERTY"
	default:
		return "UNKNOWN"
	}
}

// =============================================================================
// Record Keys
// =============================================================================

// VertexRecordKey identifies a vertex by label and primary key values.
type VertexRecordKey struct {
	Label        string            // field 1
	PkProperties map[string]string // field 2
}

func (m *VertexRecordKey) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.string(1, m.Label)
	e.stringMap(2, m.PkProperties)
	return e.buf
}

func (m *VertexRecordKey) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			m.Label = f.string()
		case f.is(2, protowire.BytesType):
			if m.PkProperties == nil {
				m.PkProperties = make(map[string]string)
			}
			return decodeStringMapEntry(f.bytes, m.PkProperties)
		}
		return nil
	})
}

// EdgeRecordKey identifies an edge by label and its endpoint vertices.
//
// InnerID is assigned by the store; clients leave it zero unless they are
// addressing one specific parallel edge.
type EdgeRecordKey struct {
	Label        string           // field 1
	SrcVertexKey *VertexRecordKey // field 2
	DstVertexKey *VertexRecordKey // field 3
	InnerID      int64            // field 4
}

func (m *EdgeRecordKey) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.string(1, m.Label)
	if m.SrcVertexKey != nil {
		e.message(2, m.SrcVertexKey)
	}
	if m.DstVertexKey != nil {
		e.message(3, m.DstVertexKey)
	}
	e.int64(4, m.InnerID)
	return e.buf
}

func (m *EdgeRecordKey) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			m.Label = f.string()
		case f.is(2, protowire.BytesType):
			if m.SrcVertexKey == nil {
				m.SrcVertexKey = &VertexRecordKey{}
			}
			return m.SrcVertexKey.unmarshalWire(f.bytes)
		case f.is(3, protowire.BytesType):
			if m.DstVertexKey == nil {
				m.DstVertexKey = &VertexRecordKey{}
			}
			return m.DstVertexKey.unmarshalWire(f.bytes)
		case f.is(4, protowire.VarintType):
			m.InnerID = f.int64()
		}
		return nil
	})
}

// DataRecord is the payload of one write request. Exactly one of
// VertexRecordKey and EdgeRecordKey is set.
type DataRecord struct {
	VertexRecordKey *VertexRecordKey  // field 1, oneof record_key
	EdgeRecordKey   *EdgeRecordKey    // field 2, oneof record_key
	Properties      map[string]string // field 3
}

func (m *DataRecord) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	switch {
	case m.VertexRecordKey != nil:
		e.message(1, m.VertexRecordKey)
	case m.EdgeRecordKey != nil:
		e.message(2, m.EdgeRecordKey)
	}
	e.stringMap(3, m.Properties)
	return e.buf
}

func (m *DataRecord) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			key := &VertexRecordKey{}
			if err := key.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.VertexRecordKey, m.EdgeRecordKey = key, nil
		case f.is(2, protowire.BytesType):
			key := &EdgeRecordKey{}
			if err := key.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.VertexRecordKey, m.EdgeRecordKey = nil, key
		case f.is(3, protowire.BytesType):
			if m.Properties == nil {
				m.Properties = make(map[string]string)
			}
			return decodeStringMapEntry(f.bytes, m.Properties)
		}
		return nil
	})
}

// WriteRequest is one entry of a batch write envelope.
type WriteRequest struct {
	WriteType  WriteType   // field 1
	DataRecord *DataRecord // field 2
}

func (m *WriteRequest) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, int32(m.WriteType))
	if m.DataRecord != nil {
		e.message(2, m.DataRecord)
	}
	return e.buf
}

func (m *WriteRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.WriteType = WriteType(f.int32())
		case f.is(2, protowire.BytesType):
			if m.DataRecord == nil {
				m.DataRecord = &DataRecord{}
			}
			return m.DataRecord.unmarshalWire(f.bytes)
		}
		return nil
	})
}

// =============================================================================
// ClientWrite Messages
// =============================================================================

// GetClientIDRequest asks the write service for a client id.
type GetClientIDRequest struct{}

func (m *GetClientIDRequest) appendWire(b []byte) []byte { return b }

func (m *GetClientIDRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(field) error { return nil })
}

// GetClientIDResponse carries the id issued to this client.
type GetClientIDResponse struct {
	ClientID string // field 1, client_id
}

func (m *GetClientIDResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.string(1, m.ClientID)
	return e.buf
}

func (m *GetClientIDResponse) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.BytesType) {
			m.ClientID = f.string()
		}
		return nil
	})
}

// BatchWriteRequest is the write envelope submitted atomically.
type BatchWriteRequest struct {
	ClientID      string          // field 1, client_id
	WriteRequests []*WriteRequest // field 2
}

func (m *BatchWriteRequest) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.string(1, m.ClientID)
	for _, wr := range m.WriteRequests {
		e.message(2, wr)
	}
	return e.buf
}

func (m *BatchWriteRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			m.ClientID = f.string()
		case f.is(2, protowire.BytesType):
			wr := &WriteRequest{}
			if err := wr.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.WriteRequests = append(m.WriteRequests, wr)
		}
		return nil
	})
}

// BatchWriteResponse returns the snapshot id assigned to the batch.
type BatchWriteResponse struct {
	SnapshotID int64 // field 1, snapshot_id
}

func (m *BatchWriteResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.SnapshotID)
	return e.buf
}

func (m *BatchWriteResponse) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.VarintType) {
			m.SnapshotID = f.int64()
		}
		return nil
	})
}

// RemoteFlushRequest waits up to WaitTimeMs for SnapshotID to become visible.
type RemoteFlushRequest struct {
	SnapshotID int64 // field 1, snapshot_id
	WaitTimeMs int64 // field 2, wait_time_ms
}

func (m *RemoteFlushRequest) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.SnapshotID)
	e.int64(2, m.WaitTimeMs)
	return e.buf
}

func (m *RemoteFlushRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.SnapshotID = f.int64()
		case f.is(2, protowire.VarintType):
			m.WaitTimeMs = f.int64()
		}
		return nil
	})
}

// RemoteFlushResponse reports whether the snapshot became visible in time.
type RemoteFlushResponse struct {
	Success bool // field 1
}

func (m *RemoteFlushResponse) appendWire(b []byte) []byte {
	return appendSuccess(b, m.Success)
}

func (m *RemoteFlushResponse) unmarshalWire(b []byte) error {
	return decodeSuccess(b, &m.Success)
}

// ReplayRecordsRequest re-drives the write log from Offset/Timestamp.
type ReplayRecordsRequest struct {
	Offset    int64 // field 1
	Timestamp int64 // field 2
}

func (m *ReplayRecordsRequest) appendWire(b []byte) []byte {
	return appendReplay(b, m.Offset, m.Timestamp)
}

func (m *ReplayRecordsRequest) unmarshalWire(b []byte) error {
	return decodeReplay(b, &m.Offset, &m.Timestamp)
}

// ReplayRecordsResponse returns the snapshot id reached by the replay.
type ReplayRecordsResponse struct {
	SnapshotID int64 // field 1, snapshot_id
}

func (m *ReplayRecordsResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.SnapshotID)
	return e.buf
}

func (m *ReplayRecordsResponse) unmarshalWire(b []byte) error {
	return decodeLastSnapshot(b, &m.SnapshotID)
}

// -----------------------------------------------------------------------------
// Shared shapes
// -----------------------------------------------------------------------------

func appendSuccess(b []byte, success bool) []byte {
	e := encoder{buf: b}
	e.bool(1, success)
	return e.buf
}

func decodeSuccess(b []byte, success *bool) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.VarintType) {
			*success = f.bool()
		}
		return nil
	})
}

func appendReplay(b []byte, offset, timestamp int64) []byte {
	e := encoder{buf: b}
	e.int64(1, offset)
	e.int64(2, timestamp)
	return e.buf
}

func decodeReplay(b []byte, offset, timestamp *int64) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			*offset = f.int64()
		case f.is(2, protowire.VarintType):
			*timestamp = f.int64()
		}
		return nil
	})
}

// decodeLastSnapshot reads field 1 as a snapshot id. Some server versions
// declare it repeated, so packed and unpacked lists are accepted and the
// last value wins.
func decodeLastSnapshot(b []byte, snapshotID *int64) error {
	return rangeFields(b, func(f field) error {
		if f.num != 1 || (f.typ != protowire.VarintType && f.typ != protowire.BytesType) {
			return nil
		}
		vs, err := f.varints()
		if err != nil {
			return err
		}
		if len(vs) > 0 {
			*snapshotID = int64(vs[len(vs)-1])
		}
		return nil
	})
}
