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
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/AleutianAI/grootclient/pkg/validation"
	"github.com/AleutianAI/grootclient/services/groot/record"
)

// ErrInvalidRecord is wrapped by every ParseLine failure.
var ErrInvalidRecord = errors.New("invalid record")

// Numbers decode as json.Number so integer keys keep every digit.
var decoder = sonic.Config{UseNumber: true}.Froze()

// Line is one input record.
type Line struct {
	Kind       string         `json:"kind"`
	Op         string         `json:"op"`
	Label      string         `json:"label"`
	PK         map[string]any `json:"pk"`
	Src        *Endpoint      `json:"src,omitempty"`
	Dst        *Endpoint      `json:"dst,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Endpoint is an edge's source or destination vertex.
type Endpoint struct {
	Label string         `json:"label"`
	PK    map[string]any `json:"pk"`
}

// ParseLine decodes one JSON line into a write entry. Kind defaults to
// vertex and op to insert.
func ParseLine(raw []byte) (record.Entry, error) {
	var ln Line
	if err := decoder.Unmarshal(raw, &ln); err != nil {
		return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return ln.Entry()
}

// Entry converts l to a write entry.
func (l Line) Entry() (record.Entry, error) {
	kind := record.Vertex
	if l.Kind != "" {
		k, err := record.ParseEntityKind(l.Kind)
		if err != nil {
			return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		kind = k
	}
	op := record.Insert
	if l.Op != "" {
		o, err := record.ParseWriteType(l.Op)
		if err != nil {
			return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		op = o
	}
	if l.Label == "" {
		return record.Entry{}, fmt.Errorf("%w: label is required", ErrInvalidRecord)
	}
	if err := validation.ValidateLabel(l.Label); err != nil {
		return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := validation.ValidatePropertyNames(l.Properties); err != nil {
		return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := validation.ValidatePropertyNames(l.PK); err != nil {
		return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	entry := record.Entry{Kind: kind, Op: op}
	if kind == record.Vertex {
		if len(l.PK) == 0 {
			return record.Entry{}, fmt.Errorf("%w: vertex %s has no pk", ErrInvalidRecord, l.Label)
		}
		entry.Vertex = record.VertexRecord{
			Key:        record.NewVertexKey(l.Label, l.PK),
			Properties: l.Properties,
		}
		return entry, nil
	}

	if l.Src == nil || l.Dst == nil || l.Src.Label == "" || l.Dst.Label == "" {
		return record.Entry{}, fmt.Errorf("%w: edge %s needs src and dst", ErrInvalidRecord, l.Label)
	}
	for _, end := range []*Endpoint{l.Src, l.Dst} {
		if err := validation.ValidateLabel(end.Label); err != nil {
			return record.Entry{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
	}
	entry.Edge = record.EdgeRecord{
		Key: record.NewEdgeKey(l.Label,
			record.NewVertexKey(l.Src.Label, l.Src.PK),
			record.NewVertexKey(l.Dst.Label, l.Dst.PK)),
		Properties: l.Properties,
	}
	return entry, nil
}
