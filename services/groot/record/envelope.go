// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package record

import (
	"fmt"
	"strconv"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

// VertexWriteRequests builds one write envelope for a vertex batch.
//
// Description:
//
//	Emits one write request per record, in input order, all tagged with op.
//	Delete requests never carry properties. The client id is left empty;
//	the connection stamps it when the batch is sent.
//
// Inputs:
//
//	records - Vertices to write. May be empty.
//	op - Operation applied to every record.
//
// Outputs:
//
//	*grootpb.BatchWriteRequest - The envelope. Never nil.
func VertexWriteRequests(records []VertexRecord, op WriteType) *grootpb.BatchWriteRequest {
	req := &grootpb.BatchWriteRequest{
		WriteRequests: make([]*grootpb.WriteRequest, 0, len(records)),
	}
	for _, r := range records {
		req.WriteRequests = append(req.WriteRequests, vertexRequest(r, op))
	}
	return req
}

// EdgeWriteRequests builds one write envelope for an edge batch.
//
// Same contract as VertexWriteRequests.
func EdgeWriteRequests(records []EdgeRecord, op WriteType) *grootpb.BatchWriteRequest {
	req := &grootpb.BatchWriteRequest{
		WriteRequests: make([]*grootpb.WriteRequest, 0, len(records)),
	}
	for _, r := range records {
		req.WriteRequests = append(req.WriteRequests, edgeRequest(r, op))
	}
	return req
}

// Entry is one element of a mixed batch. Kind selects which of Vertex and
// Edge is used.
type Entry struct {
	Kind   EntityKind
	Op     WriteType
	Vertex VertexRecord
	Edge   EdgeRecord
}

// NewBatch builds one envelope from entries of any kind and operation,
// preserving their order.
func NewBatch(entries ...Entry) *grootpb.BatchWriteRequest {
	req := &grootpb.BatchWriteRequest{
		WriteRequests: make([]*grootpb.WriteRequest, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Kind == Edge {
			req.WriteRequests = append(req.WriteRequests, edgeRequest(e.Edge, e.Op))
			continue
		}
		req.WriteRequests = append(req.WriteRequests, vertexRequest(e.Vertex, e.Op))
	}
	return req
}

func vertexRequest(r VertexRecord, op WriteType) *grootpb.WriteRequest {
	return &grootpb.WriteRequest{
		WriteType: op.Proto(),
		DataRecord: &grootpb.DataRecord{
			VertexRecordKey: r.Key.proto(),
			Properties:      payload(r.Properties, op),
		},
	}
}

func edgeRequest(r EdgeRecord, op WriteType) *grootpb.WriteRequest {
	return &grootpb.WriteRequest{
		WriteType: op.Proto(),
		DataRecord: &grootpb.DataRecord{
			EdgeRecordKey: r.Key.proto(),
			Properties:    payload(r.Properties, op),
		},
	}
}

func payload(props Properties, op WriteType) map[string]string {
	if op == Delete {
		return map[string]string{}
	}
	return FormatMap(props)
}

// -----------------------------------------------------------------------------
// Value rendering
// -----------------------------------------------------------------------------

// FormatMap renders every value of m with FormatValue. A nil map yields an
// empty, non-nil map.
func FormatMap[M ~map[string]any](m M) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = FormatValue(v)
	}
	return out
}

// FormatValue renders a property value the way the store parses it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
