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
// Schema Enums
// =============================================================================

// DataType is the declared type of a property.
type DataType int32

const (
	DataTypeUnknown    DataType = 0
	DataTypeBool       DataType = 1
	DataTypeChar       DataType = 2
	DataTypeShort      DataType = 3
	DataTypeInt        DataType = 4
	DataTypeLong       DataType = 5
	DataTypeFloat      DataType = 6
	DataTypeDouble     DataType = 7
	DataTypeString     DataType = 8
	DataTypeBytes      DataType = 9
	DataTypeIntList    DataType = 10
	DataTypeLongList   DataType = 11
	DataTypeFloatList  DataType = 12
	DataTypeDoubleList DataType = 13
	DataTypeStringList DataType = 14
)

var dataTypeNames = map[DataType]string{
	DataTypeUnknown:    "UNKNOWN",
	DataTypeBool:       "BOOL",
	DataTypeChar:       "CHAR",
	DataTypeShort:      "SHORT",
	DataTypeInt:        "INT",
	DataTypeLong:       "LONG",
	DataTypeFloat:      "FLOAT",
	DataTypeDouble:     "DOUBLE",
	DataTypeString:     "STRING",
	DataTypeBytes:      "BYTES",
	DataTypeIntList:    "INT_LIST",
	DataTypeLongList:   "LONG_LIST",
	DataTypeFloatList:  "FLOAT_LIST",
	DataTypeDoubleList: "DOUBLE_LIST",
	DataTypeStringList: "STRING_LIST",
}

// String returns the protocol name of the data type.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// DataTypeByName resolves a protocol name such as "LONG" to its DataType.
func DataTypeByName(name string) (DataType, bool) {
	for t, n := range dataTypeNames {
		if n == name {
			return t, true
		}
	}
	return DataTypeUnknown, false
}

// TypeEnum tells vertex and edge type definitions apart.
type TypeEnum int32

const (
	TypeUnspecified TypeEnum = 0
	TypeVertex      TypeEnum = 1
	TypeEdge        TypeEnum = 2
)

// =============================================================================
// Schema Definitions
// =============================================================================

// LabelID is the numeric id of a label.
type LabelID struct {
	ID int32 // field 1
}

func (m *LabelID) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, m.ID)
	return e.buf
}

func (m *LabelID) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.VarintType) {
			m.ID = f.int32()
		}
		return nil
	})
}

// PropertyDef describes one property of a vertex or edge type.
type PropertyDef struct {
	ID       int32    // field 1
	InnerID  int32    // field 2
	Name     string   // field 3
	DataType DataType // field 4
	PK       bool     // field 6
	Comment  string   // field 7
}

func (m *PropertyDef) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, m.ID)
	e.int32(2, m.InnerID)
	e.string(3, m.Name)
	e.int32(4, int32(m.DataType))
	e.bool(6, m.PK)
	e.string(7, m.Comment)
	return e.buf
}

func (m *PropertyDef) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.ID = f.int32()
		case f.is(2, protowire.VarintType):
			m.InnerID = f.int32()
		case f.is(3, protowire.BytesType):
			m.Name = f.string()
		case f.is(4, protowire.VarintType):
			m.DataType = DataType(f.int32())
		case f.is(6, protowire.VarintType):
			m.PK = f.bool()
		case f.is(7, protowire.BytesType):
			m.Comment = f.string()
		}
		return nil
	})
}

// TypeDef describes a vertex or edge type.
type TypeDef struct {
	VersionID int32          // field 1
	Label     string         // field 2
	LabelID   *LabelID       // field 3
	TypeEnum  TypeEnum       // field 4
	Props     []*PropertyDef // field 5
	PkIdxs    []int32        // field 6, packed
}

func (m *TypeDef) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, m.VersionID)
	e.string(2, m.Label)
	if m.LabelID != nil {
		e.message(3, m.LabelID)
	}
	e.int32(4, int32(m.TypeEnum))
	for _, p := range m.Props {
		e.message(5, p)
	}
	e.packedInt32(6, m.PkIdxs)
	return e.buf
}

func (m *TypeDef) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.VersionID = f.int32()
		case f.is(2, protowire.BytesType):
			m.Label = f.string()
		case f.is(3, protowire.BytesType):
			m.LabelID = &LabelID{}
			return m.LabelID.unmarshalWire(f.bytes)
		case f.is(4, protowire.VarintType):
			m.TypeEnum = TypeEnum(f.int32())
		case f.is(5, protowire.BytesType):
			p := &PropertyDef{}
			if err := p.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.Props = append(m.Props, p)
		case f.num == 6:
			vs, err := f.varints()
			if err != nil {
				return err
			}
			for _, v := range vs {
				m.PkIdxs = append(m.PkIdxs, int32(v))
			}
		}
		return nil
	})
}

// EdgeKind is one (edge label, source label, destination label) relation.
type EdgeKind struct {
	EdgeLabel        string   // field 1
	EdgeLabelID      *LabelID // field 2
	SrcVertexLabel   string   // field 3
	SrcVertexLabelID *LabelID // field 4
	DstVertexLabel   string   // field 5
	DstVertexLabelID *LabelID // field 6
}

func (m *EdgeKind) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.string(1, m.EdgeLabel)
	if m.EdgeLabelID != nil {
		e.message(2, m.EdgeLabelID)
	}
	e.string(3, m.SrcVertexLabel)
	if m.SrcVertexLabelID != nil {
		e.message(4, m.SrcVertexLabelID)
	}
	e.string(5, m.DstVertexLabel)
	if m.DstVertexLabelID != nil {
		e.message(6, m.DstVertexLabelID)
	}
	return e.buf
}

func (m *EdgeKind) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			m.EdgeLabel = f.string()
		case f.is(2, protowire.BytesType):
			m.EdgeLabelID = &LabelID{}
			return m.EdgeLabelID.unmarshalWire(f.bytes)
		case f.is(3, protowire.BytesType):
			m.SrcVertexLabel = f.string()
		case f.is(4, protowire.BytesType):
			m.SrcVertexLabelID = &LabelID{}
			return m.SrcVertexLabelID.unmarshalWire(f.bytes)
		case f.is(5, protowire.BytesType):
			m.DstVertexLabel = f.string()
		case f.is(6, protowire.BytesType):
			m.DstVertexLabelID = &LabelID{}
			return m.DstVertexLabelID.unmarshalWire(f.bytes)
		}
		return nil
	})
}

// GraphDef is a full schema snapshot.
type GraphDef struct {
	Version          int64            // field 1
	TypeDefs         []*TypeDef       // field 2
	EdgeKinds        []*EdgeKind      // field 3
	PropertyNameToID map[string]int32 // field 4
	LabelIdx         int32            // field 5
	PropertyIdx      int32            // field 6
}

func (m *GraphDef) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int64(1, m.Version)
	for _, td := range m.TypeDefs {
		e.message(2, td)
	}
	for _, ek := range m.EdgeKinds {
		e.message(3, ek)
	}
	e.stringInt32Map(4, m.PropertyNameToID)
	e.int32(5, m.LabelIdx)
	e.int32(6, m.PropertyIdx)
	return e.buf
}

func (m *GraphDef) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.Version = f.int64()
		case f.is(2, protowire.BytesType):
			td := &TypeDef{}
			if err := td.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.TypeDefs = append(m.TypeDefs, td)
		case f.is(3, protowire.BytesType):
			ek := &EdgeKind{}
			if err := ek.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.EdgeKinds = append(m.EdgeKinds, ek)
		case f.is(4, protowire.BytesType):
			k, v, err := decodeMapEntry(f.bytes)
			if err != nil {
				return err
			}
			if m.PropertyNameToID == nil {
				m.PropertyNameToID = make(map[string]int32)
			}
			m.PropertyNameToID[k.string()] = v.int32()
		case f.is(5, protowire.VarintType):
			m.LabelIdx = f.int32()
		case f.is(6, protowire.VarintType):
			m.PropertyIdx = f.int32()
		}
		return nil
	})
}

// =============================================================================
// DDL Operations
// =============================================================================

// CreateVertexTypeRequest declares a new vertex type.
type CreateVertexTypeRequest struct {
	TypeDef *TypeDef // field 1
}

// CreateEdgeTypeRequest declares a new edge type.
type CreateEdgeTypeRequest struct {
	TypeDef *TypeDef // field 1
}

// AddEdgeKindRequest binds an edge type to a source and destination vertex type.
type AddEdgeKindRequest struct {
	EdgeLabel      string // field 1
	SrcVertexLabel string // field 2
	DstVertexLabel string // field 3
}

// RemoveEdgeKindRequest removes a relation added by AddEdgeKindRequest.
type RemoveEdgeKindRequest struct {
	EdgeLabel      string // field 1
	SrcVertexLabel string // field 2
	DstVertexLabel string // field 3
}

// DropVertexTypeRequest removes a vertex type.
type DropVertexTypeRequest struct {
	Label string // field 1
}

// DropEdgeTypeRequest removes an edge type.
type DropEdgeTypeRequest struct {
	Label string // field 1
}

func (m *CreateVertexTypeRequest) appendWire(b []byte) []byte { return appendTypeDef(b, m.TypeDef) }
func (m *CreateVertexTypeRequest) unmarshalWire(b []byte) error {
	return decodeTypeDef(b, &m.TypeDef)
}

func (m *CreateEdgeTypeRequest) appendWire(b []byte) []byte { return appendTypeDef(b, m.TypeDef) }
func (m *CreateEdgeTypeRequest) unmarshalWire(b []byte) error {
	return decodeTypeDef(b, &m.TypeDef)
}

func (m *AddEdgeKindRequest) appendWire(b []byte) []byte {
	return appendEdgeKind(b, m.EdgeLabel, m.SrcVertexLabel, m.DstVertexLabel)
}
func (m *AddEdgeKindRequest) unmarshalWire(b []byte) error {
	return decodeEdgeKind(b, &m.EdgeLabel, &m.SrcVertexLabel, &m.DstVertexLabel)
}

func (m *RemoveEdgeKindRequest) appendWire(b []byte) []byte {
	return appendEdgeKind(b, m.EdgeLabel, m.SrcVertexLabel, m.DstVertexLabel)
}
func (m *RemoveEdgeKindRequest) unmarshalWire(b []byte) error {
	return decodeEdgeKind(b, &m.EdgeLabel, &m.SrcVertexLabel, &m.DstVertexLabel)
}

func (m *DropVertexTypeRequest) appendWire(b []byte) []byte { return appendLabel(b, m.Label) }
func (m *DropVertexTypeRequest) unmarshalWire(b []byte) error {
	return decodeLabel(b, &m.Label)
}

func (m *DropEdgeTypeRequest) appendWire(b []byte) []byte { return appendLabel(b, m.Label) }
func (m *DropEdgeTypeRequest) unmarshalWire(b []byte) error {
	return decodeLabel(b, &m.Label)
}

func appendTypeDef(b []byte, td *TypeDef) []byte {
	e := encoder{buf: b}
	if td != nil {
		e.message(1, td)
	}
	return e.buf
}

func decodeTypeDef(b []byte, td **TypeDef) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.BytesType) {
			if *td == nil {
				*td = &TypeDef{}
			}
			return (*td).unmarshalWire(f.bytes)
		}
		return nil
	})
}

func appendEdgeKind(b []byte, edge, src, dst string) []byte {
	e := encoder{buf: b}
	e.string(1, edge)
	e.string(2, src)
	e.string(3, dst)
	return e.buf
}

func decodeEdgeKind(b []byte, edge, src, dst *string) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			*edge = f.string()
		case f.is(2, protowire.BytesType):
			*src = f.string()
		case f.is(3, protowire.BytesType):
			*dst = f.string()
		}
		return nil
	})
}

func appendLabel(b []byte, label string) []byte {
	e := encoder{buf: b}
	e.string(1, label)
	return e.buf
}

func decodeLabel(b []byte, label *string) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.BytesType) {
			*label = f.string()
		}
		return nil
	})
}

// DdlRequest is one schema operation. Exactly one field is set.
type DdlRequest struct {
	CreateVertexType *CreateVertexTypeRequest // field 1
	CreateEdgeType   *CreateEdgeTypeRequest   // field 2
	AddEdgeKind      *AddEdgeKindRequest      // field 3
	RemoveEdgeKind   *RemoveEdgeKindRequest   // field 4
	DropVertexType   *DropVertexTypeRequest   // field 5
	DropEdgeType     *DropEdgeTypeRequest     // field 6
}

func (m *DdlRequest) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	switch {
	case m.CreateVertexType != nil:
		e.message(1, m.CreateVertexType)
	case m.CreateEdgeType != nil:
		e.message(2, m.CreateEdgeType)
	case m.AddEdgeKind != nil:
		e.message(3, m.AddEdgeKind)
	case m.RemoveEdgeKind != nil:
		e.message(4, m.RemoveEdgeKind)
	case m.DropVertexType != nil:
		e.message(5, m.DropVertexType)
	case m.DropEdgeType != nil:
		e.message(6, m.DropEdgeType)
	}
	return e.buf
}

func (m *DdlRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		var op Message
		switch f.num {
		case 1:
			*m = DdlRequest{CreateVertexType: &CreateVertexTypeRequest{}}
			op = m.CreateVertexType
		case 2:
			*m = DdlRequest{CreateEdgeType: &CreateEdgeTypeRequest{}}
			op = m.CreateEdgeType
		case 3:
			*m = DdlRequest{AddEdgeKind: &AddEdgeKindRequest{}}
			op = m.AddEdgeKind
		case 4:
			*m = DdlRequest{RemoveEdgeKind: &RemoveEdgeKindRequest{}}
			op = m.RemoveEdgeKind
		case 5:
			*m = DdlRequest{DropVertexType: &DropVertexTypeRequest{}}
			op = m.DropVertexType
		case 6:
			*m = DdlRequest{DropEdgeType: &DropEdgeTypeRequest{}}
			op = m.DropEdgeType
		default:
			return nil
		}
		return op.unmarshalWire(f.bytes)
	})
}

// =============================================================================
// GrootDdlService Messages
// =============================================================================

// BatchSubmitRequest carries an ordered list of schema operations.
type BatchSubmitRequest struct {
	FormatVersion  int32         // field 1
	SimpleResponse bool          // field 2
	Value          []*DdlRequest // field 3
}

func (m *BatchSubmitRequest) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, m.FormatVersion)
	e.bool(2, m.SimpleResponse)
	for _, op := range m.Value {
		e.message(3, op)
	}
	return e.buf
}

func (m *BatchSubmitRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.FormatVersion = f.int32()
		case f.is(2, protowire.VarintType):
			m.SimpleResponse = f.bool()
		case f.is(3, protowire.BytesType):
			op := &DdlRequest{}
			if err := op.unmarshalWire(f.bytes); err != nil {
				return err
			}
			m.Value = append(m.Value, op)
		}
		return nil
	})
}

// BatchSubmitResponse returns the schema snapshot after the operations.
// GraphDef is nil when the request asked for a simple response.
type BatchSubmitResponse struct {
	FormatVersion int32     // field 1
	DdlSnapshotID int64     // field 2
	GraphDef      *GraphDef // field 3
}

func (m *BatchSubmitResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	e.int32(1, m.FormatVersion)
	e.int64(2, m.DdlSnapshotID)
	if m.GraphDef != nil {
		e.message(3, m.GraphDef)
	}
	return e.buf
}

func (m *BatchSubmitResponse) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			m.FormatVersion = f.int32()
		case f.is(2, protowire.VarintType):
			m.DdlSnapshotID = f.int64()
		case f.is(3, protowire.BytesType):
			if m.GraphDef == nil {
				m.GraphDef = &GraphDef{}
			}
			return m.GraphDef.unmarshalWire(f.bytes)
		}
		return nil
	})
}

// GetGraphDefRequest asks for the current schema snapshot.
type GetGraphDefRequest struct{}

func (m *GetGraphDefRequest) appendWire(b []byte) []byte { return b }

func (m *GetGraphDefRequest) unmarshalWire(b []byte) error {
	return rangeFields(b, func(field) error { return nil })
}

// GetGraphDefResponse carries the current schema snapshot.
type GetGraphDefResponse struct {
	GraphDef *GraphDef // field 1
}

func (m *GetGraphDefResponse) appendWire(b []byte) []byte {
	e := encoder{buf: b}
	if m.GraphDef != nil {
		e.message(1, m.GraphDef)
	}
	return e.buf
}

func (m *GetGraphDefResponse) unmarshalWire(b []byte) error {
	return rangeFields(b, func(f field) error {
		if f.is(1, protowire.BytesType) {
			if m.GraphDef == nil {
				m.GraphDef = &GraphDef{}
			}
			return m.GraphDef.unmarshalWire(f.bytes)
		}
		return nil
	})
}
