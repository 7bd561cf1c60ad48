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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshal_KnownBytes(t *testing.T) {
	t.Run("snapshot id", func(t *testing.T) {
		got := Marshal(&BatchWriteResponse{SnapshotID: 42})
		assert.Equal(t, []byte{0x08, 0x2a}, got)
	})

	t.Run("zero scalars are omitted", func(t *testing.T) {
		assert.Empty(t, Marshal(&RemoteFlushRequest{}))
		assert.Empty(t, Marshal(&BatchWriteResponse{}))
	})

	t.Run("vertex key with pk map", func(t *testing.T) {
		got := Marshal(&VertexRecordKey{
			Label:        "person",
			PkProperties: map[string]string{"id": "1"},
		})
		want := []byte{0x0a, 0x06}
		want = append(want, "person"...)
		want = append(want, 0x12, 0x07, 0x0a, 0x02, 'i', 'd', 0x12, 0x01, '1')
		assert.Equal(t, want, got)
	})

	t.Run("flush request", func(t *testing.T) {
		got := Marshal(&RemoteFlushRequest{SnapshotID: 7, WaitTimeMs: 3000})
		want := []byte{0x08, 0x07, 0x10}
		want = protowire.AppendVarint(want, 3000)
		assert.Equal(t, want, got)
	})
}

func TestMarshal_MapOrderIsDeterministic(t *testing.T) {
	props := map[string]string{"zeta": "1", "alpha": "2", "mid": "3", "beta": "4"}
	first := Marshal(&DataRecord{Properties: props})
	for range 20 {
		assert.Equal(t, first, Marshal(&DataRecord{Properties: props}))
	}

	var keys []string
	err := rangeFields(first, func(f field) error {
		k, _, err := decodeMapEntry(f.bytes)
		keys = append(keys, k.string())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, keys)
}

func TestUnmarshal_SnapshotEncodings(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int64
	}{
		{name: "singular", in: []byte{0x08, 0x05}, want: 5},
		{name: "packed keeps last", in: []byte{0x0a, 0x02, 0x05, 0x07}, want: 7},
		{name: "unpacked keeps last", in: []byte{0x08, 0x05, 0x08, 0x09}, want: 9},
		{name: "empty", in: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v1 ReplayRecordsResponse
			require.NoError(t, Unmarshal(tt.in, &v1))
			assert.Equal(t, tt.want, v1.SnapshotID)

			var v2 ReplayRecordsResponseV2
			require.NoError(t, Unmarshal(tt.in, &v2))
			assert.Equal(t, tt.want, v2.SnapshotID)
		})
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xdeadbeef)
	b = protowire.AppendTag(b, 10, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "client-17")
	b = protowire.AppendTag(b, 11, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 1)

	var resp GetClientIDResponse
	require.NoError(t, Unmarshal(b, &resp))
	assert.Equal(t, "client-17", resp.ClientID)
}

func TestUnmarshal_Truncated(t *testing.T) {
	var resp GetClientIDResponse
	err := Unmarshal([]byte{0x0a, 0x05, 'a'}, &resp)
	assert.Error(t, err)
}

func TestBatchWriteRequest_RoundTrip(t *testing.T) {
	in := &BatchWriteRequest{
		ClientID: "c1",
		WriteRequests: []*WriteRequest{
			{
				WriteType: WriteTypeInsert,
				DataRecord: &DataRecord{
					VertexRecordKey: &VertexRecordKey{Label: "person", PkProperties: map[string]string{"id": "1"}},
					Properties:      map[string]string{"name": "marko"},
				},
			},
			{
				WriteType: WriteTypeDelete,
				DataRecord: &DataRecord{
					EdgeRecordKey: &EdgeRecordKey{
						Label:        "knows",
						SrcVertexKey: &VertexRecordKey{Label: "person", PkProperties: map[string]string{"id": "1"}},
						DstVertexKey: &VertexRecordKey{Label: "person", PkProperties: map[string]string{"id": "2"}},
					},
				},
			},
		},
	}

	var out BatchWriteRequest
	require.NoError(t, Unmarshal(Marshal(in), &out))

	require.Len(t, out.WriteRequests, 2)
	assert.Equal(t, "c1", out.ClientID)
	assert.Equal(t, WriteTypeInsert, out.WriteRequests[0].WriteType)
	assert.Equal(t, in.WriteRequests[0].DataRecord, out.WriteRequests[0].DataRecord)
	assert.Equal(t, WriteTypeDelete, out.WriteRequests[1].WriteType)
	assert.Nil(t, out.WriteRequests[1].DataRecord.VertexRecordKey)
	assert.Equal(t, in.WriteRequests[1].DataRecord.EdgeRecordKey, out.WriteRequests[1].DataRecord.EdgeRecordKey)
	assert.Empty(t, out.WriteRequests[1].DataRecord.Properties)
}

func TestDdlRequest_OneofLastWins(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, Marshal(&DropVertexTypeRequest{Label: "person"}))
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, Marshal(&DropEdgeTypeRequest{Label: "knows"}))

	var req DdlRequest
	require.NoError(t, Unmarshal(b, &req))
	assert.Nil(t, req.DropVertexType)
	require.NotNil(t, req.DropEdgeType)
	assert.Equal(t, "knows", req.DropEdgeType.Label)
}

func TestGraphDef_Decode(t *testing.T) {
	def := &GraphDef{
		Version: 3,
		TypeDefs: []*TypeDef{{
			Label:    "person",
			LabelID:  &LabelID{ID: 1},
			TypeEnum: TypeVertex,
			Props: []*PropertyDef{
				{ID: 1, Name: "id", DataType: DataTypeLong, PK: true},
				{ID: 2, Name: "name", DataType: DataTypeString},
			},
			PkIdxs: []int32{0},
		}},
		EdgeKinds: []*EdgeKind{{
			EdgeLabel:      "knows",
			SrcVertexLabel: "person",
			DstVertexLabel: "person",
		}},
		PropertyNameToID: map[string]int32{"id": 1, "name": 2},
		LabelIdx:         2,
		PropertyIdx:      2,
	}

	var out GraphDef
	require.NoError(t, Codec{}.Unmarshal(Marshal(def), &out))
	assert.Equal(t, *def, out)
}

func TestInt32_NegativeIsSignExtended(t *testing.T) {
	b := Marshal(&LabelID{ID: -1})
	assert.Len(t, b, 11)

	var out LabelID
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, int32(-1), out.ID)
}

func TestCodec(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "proto", c.Name())

	_, err := c.Marshal("not a message")
	assert.ErrorIs(t, err, ErrNotMessage)
	assert.ErrorIs(t, c.Unmarshal(nil, 12), ErrNotMessage)

	b, err := c.Marshal(&GetStoreStateResponse{PartitionStates: map[int32]*PartitionState{
		1: {TotalSpace: 100, UsedSpace: 40},
		0: {TotalSpace: 10},
	}})
	require.NoError(t, err)

	var out GetStoreStateResponse
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, int64(40), out.PartitionStates[1].UsedSpace)
	assert.Equal(t, int64(10), out.PartitionStates[0].TotalSpace)
}

func TestWriteType_String(t *testing.T) {
	assert.Equal(t, "INSERT", WriteTypeInsert.String())
	assert.Equal(t, "CLEAR_PROPERTY", WriteTypeClearProperty.String())
	assert.Equal(t, "UNKNOWN", WriteType(42).String())

	dt, ok := DataTypeByName("DOUBLE_LIST")
	assert.True(t, ok)
	assert.Equal(t, DataTypeDoubleList, dt)
	_, ok = DataTypeByName("nope")
	assert.False(t, ok)
}
