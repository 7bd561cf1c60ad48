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

// Message is implemented by every request and response type in this package.
type Message interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

// Marshal returns the protobuf encoding of m.
func Marshal(m Message) []byte {
	return m.appendWire(nil)
}

// Unmarshal decodes the protobuf encoding b into m.
//
// Fields already set on m are overwritten or appended to, following
// protobuf merge semantics. Unknown fields are skipped.
func Unmarshal(b []byte, m Message) error {
	return m.unmarshalWire(b)
}

// -----------------------------------------------------------------------------
// Encoding
// -----------------------------------------------------------------------------

// encoder appends proto3 fields, omitting scalar zero values.
type encoder struct {
	buf []byte
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

func (e *encoder) int64(num protowire.Number, v int64) {
	e.varint(num, uint64(v))
}

// int32 sign-extends negative values to ten bytes, as protoc-generated code does.
func (e *encoder) int32(num protowire.Number, v int32) {
	e.varint(num, uint64(int64(v)))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if v {
		e.varint(num, 1)
	}
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

// message always writes the field, so an empty sub-message keeps its presence.
func (e *encoder) message(num protowire.Number, m Message) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, m.appendWire(nil))
}

func (e *encoder) packedInt32(num protowire.Number, vs []int32) {
	if len(vs) == 0 {
		return
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, packed)
}

// stringMap writes one entry message per key, in key order.
func (e *encoder) stringMap(num protowire.Number, m map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendString(entry, m[k])
		e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
		e.buf = protowire.AppendBytes(e.buf, entry)
	}
}

func (e *encoder) stringInt32Map(num protowire.Number, m map[string]int32) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, 2, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(int64(m[k])))
		e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
		e.buf = protowire.AppendBytes(e.buf, entry)
	}
}

// -----------------------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------------------

// field is one decoded tag/value pair. Only varint and length-delimited
// values are retained; other wire types are consumed and reported with
// neither set.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) is(num protowire.Number, typ protowire.Type) bool {
	return f.num == num && f.typ == typ
}

func (f field) string() string {
	return string(f.bytes)
}

func (f field) int64() int64 {
	return int64(f.varint)
}

func (f field) int32() int32 {
	return int32(f.varint)
}

func (f field) bool() bool {
	return f.varint != 0
}

// varints returns the values of a repeated scalar field in either the
// packed or the unpacked encoding.
func (f field) varints() ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return []uint64{f.varint}, nil
	}
	var out []uint64
	b := f.bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

// rangeFields calls fn for every field in b, in wire order.
func rangeFields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// decodeMapEntry splits a map entry message into its key and value fields.
func decodeMapEntry(b []byte) (key, value field, err error) {
	err = rangeFields(b, func(f field) error {
		switch f.num {
		case 1:
			key = f
		case 2:
			value = f
		}
		return nil
	})
	return key, value, err
}

func decodeStringMapEntry(b []byte, into map[string]string) error {
	k, v, err := decodeMapEntry(b)
	if err != nil {
		return err
	}
	into[k.string()] = v.string()
	return nil
}
