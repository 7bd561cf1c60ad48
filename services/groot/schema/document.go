// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

// Document is a declarative schema, as read from a schema file.
type Document struct {
	Vertices []LabelSpec `yaml:"vertices" json:"vertices" validate:"dive"`
	Edges    []LabelSpec `yaml:"edges" json:"edges" validate:"dive"`
}

// LabelSpec declares one label.
type LabelSpec struct {
	Label      string         `yaml:"label" json:"label" validate:"required"`
	Properties []PropertySpec `yaml:"properties" json:"properties" validate:"dive"`
	Relations  []RelationSpec `yaml:"relations,omitempty" json:"relations,omitempty" validate:"dive"`
}

// PropertySpec declares one property. Type is parsed with ParseDataType.
type PropertySpec struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Type       string `yaml:"type" json:"type" validate:"required"`
	PrimaryKey bool   `yaml:"pk,omitempty" json:"pk,omitempty"`
	Comment    string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// RelationSpec declares one source/destination pair of an edge label.
type RelationSpec struct {
	Source      string `yaml:"src" json:"src" validate:"required"`
	Destination string `yaml:"dst" json:"dst" validate:"required"`
}

// Plan queues whatever is needed to bring the schema up to doc.
//
// Labels already in the snapshot are left alone, including their
// properties; missing labels are created and missing relations of existing
// edge labels are added. Nothing is ever dropped. Planning is therefore
// safe to repeat against the same store.
//
// Outputs:
//
//	int - Number of operations queued.
//	error - Non-nil if a property type cannot be parsed. Nothing is queued then.
func (s *Schema) Plan(doc Document) (int, error) {
	var ops []op

	for _, spec := range doc.Vertices {
		if _, ok := s.VertexLabel(spec.Label); ok {
			continue
		}
		b := &LabelBuilder{name: spec.Label, kind: grootpb.TypeVertex}
		if err := addSpecProperties(b, spec); err != nil {
			return 0, err
		}
		ops = append(ops, b)
	}

	for _, spec := range doc.Edges {
		existing, ok := s.EdgeLabel(spec.Label)
		if !ok {
			b := &LabelBuilder{name: spec.Label, kind: grootpb.TypeEdge}
			if err := addSpecProperties(b, spec); err != nil {
				return 0, err
			}
			for _, r := range spec.Relations {
				b.Source(r.Source).Destination(r.Destination)
			}
			ops = append(ops, b)
			continue
		}
		for _, r := range spec.Relations {
			rel := Relation{Edge: spec.Label, Source: r.Source, Destination: r.Destination}
			if slices.Contains(existing.Relations, rel) {
				continue
			}
			ops = append(ops, relationOp{rel: rel})
		}
	}

	s.mu.Lock()
	s.pending = append(s.pending, ops...)
	s.mu.Unlock()
	return len(ops), nil
}

func addSpecProperties(b *LabelBuilder, spec LabelSpec) error {
	for _, p := range spec.Properties {
		dt, err := ParseDataType(p.Type)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", spec.Label, p.Name, err)
		}
		b.props = append(b.props, Property{Name: p.Name, DataType: dt, PrimaryKey: p.PrimaryKey, Comment: p.Comment})
	}
	return nil
}

// Document renders the loaded snapshot in the declarative form.
func (s *Schema) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	for _, l := range s.vertices {
		doc.Vertices = append(doc.Vertices, labelSpec(l))
	}
	for _, l := range s.edges {
		spec := labelSpec(l)
		for _, r := range l.Relations {
			spec.Relations = append(spec.Relations, RelationSpec{Source: r.Source, Destination: r.Destination})
		}
		doc.Edges = append(doc.Edges, spec)
	}
	return doc
}

func labelSpec(l *Label) LabelSpec {
	spec := LabelSpec{Label: l.Name}
	for _, p := range l.Properties {
		spec.Properties = append(spec.Properties, PropertySpec{
			Name:       p.Name,
			Type:       p.DataType.String(),
			PrimaryKey: p.PrimaryKey,
			Comment:    p.Comment,
		})
	}
	return spec
}
