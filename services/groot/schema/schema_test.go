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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
)

func modernGraphDef() *grootpb.GraphDef {
	return &grootpb.GraphDef{
		Version: 4,
		TypeDefs: []*grootpb.TypeDef{
			{
				Label:    "person",
				LabelID:  &grootpb.LabelID{ID: 1},
				TypeEnum: grootpb.TypeVertex,
				Props: []*grootpb.PropertyDef{
					{ID: 1, Name: "id", DataType: grootpb.DataTypeLong},
					{ID: 2, Name: "name", DataType: grootpb.DataTypeString},
				},
				PkIdxs: []int32{0},
			},
			{
				Label:    "software",
				LabelID:  &grootpb.LabelID{ID: 2},
				TypeEnum: grootpb.TypeVertex,
				Props: []*grootpb.PropertyDef{
					{ID: 1, Name: "id", DataType: grootpb.DataTypeLong, PK: true},
					{ID: 3, Name: "lang", DataType: grootpb.DataTypeString},
				},
			},
			{
				Label:    "knows",
				LabelID:  &grootpb.LabelID{ID: 3},
				TypeEnum: grootpb.TypeEdge,
				Props:    []*grootpb.PropertyDef{{ID: 4, Name: "weight", DataType: grootpb.DataTypeDouble}},
			},
		},
		EdgeKinds: []*grootpb.EdgeKind{
			{EdgeLabel: "knows", SrcVertexLabel: "person", DstVertexLabel: "person"},
			{EdgeLabel: "ghost", SrcVertexLabel: "person", DstVertexLabel: "person"},
		},
	}
}

type fakeSubmitter struct {
	got  []*grootpb.BatchSubmitRequest
	resp *grootpb.BatchSubmitResponse
	err  error
}

func (f *fakeSubmitter) Submit(_ context.Context, req *grootpb.BatchSubmitRequest) (*grootpb.BatchSubmitResponse, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestFromGraphDef(t *testing.T) {
	s := FromGraphDef(modernGraphDef())

	assert.Equal(t, int64(4), s.Version())
	require.Len(t, s.VertexLabels(), 2)
	require.Len(t, s.EdgeLabels(), 1)

	person, ok := s.VertexLabel("person")
	require.True(t, ok)
	assert.Equal(t, int32(1), person.ID)
	assert.Equal(t, []string{"id"}, person.PrimaryKeys())
	name, ok := person.Property("name")
	require.True(t, ok)
	assert.Equal(t, grootpb.DataTypeString, name.DataType)
	_, ok = person.Property("age")
	assert.False(t, ok)

	software, _ := s.VertexLabel("software")
	assert.Equal(t, []string{"id"}, software.PrimaryKeys())

	knows, ok := s.EdgeLabel("knows")
	require.True(t, ok)
	assert.Equal(t, []Relation{{Edge: "knows", Source: "person", Destination: "person"}}, knows.Relations)

	_, ok = s.VertexLabel("knows")
	assert.False(t, ok)
	_, ok = s.EdgeLabel("ghost")
	assert.False(t, ok)
}

func TestFromGraphDef_Nil(t *testing.T) {
	s := FromGraphDef(nil)
	assert.Zero(t, s.Version())
	assert.Empty(t, s.VertexLabels())
	assert.Contains(t, s.String(), "version 0")
}

func TestString(t *testing.T) {
	out := FromGraphDef(modernGraphDef()).String()
	assert.Contains(t, out, "vertex person(id LONG pk, name STRING)")
	assert.Contains(t, out, "edge knows(weight DOUBLE) person->person")
}

func TestRequest_BuildsOperationsInOrder(t *testing.T) {
	s := FromGraphDef(nil)
	s.AddVertexLabel("person").
		AddPrimaryKey("id", grootpb.DataTypeLong).
		AddProperty("name", grootpb.DataTypeString, false)
	s.AddEdgeLabel("knows").
		AddProperty("weight", grootpb.DataTypeDouble, false).
		Source("person").Destination("person").
		Source("person").Destination("software")
	s.AddEdgeRelation("created", "person", "software")
	s.DropEdgeRelation("likes", "person", "software")
	s.DropEdgeLabel("likes")
	s.DropVertexLabel("animal")

	assert.Equal(t, 6, s.Pending())
	req, err := s.Request()
	require.NoError(t, err)

	assert.Equal(t, int32(1), req.FormatVersion)
	assert.False(t, req.SimpleResponse)
	require.Len(t, req.Value, 8)

	v := req.Value[0].CreateVertexType
	require.NotNil(t, v)
	assert.Equal(t, "person", v.TypeDef.Label)
	assert.Equal(t, grootpb.TypeVertex, v.TypeDef.TypeEnum)
	assert.Equal(t, []int32{0}, v.TypeDef.PkIdxs)
	require.Len(t, v.TypeDef.Props, 2)
	assert.True(t, v.TypeDef.Props[0].PK)

	e := req.Value[1].CreateEdgeType
	require.NotNil(t, e)
	assert.Equal(t, grootpb.TypeEdge, e.TypeDef.TypeEnum)
	assert.Empty(t, e.TypeDef.PkIdxs)

	assert.Equal(t, &grootpb.AddEdgeKindRequest{EdgeLabel: "knows", SrcVertexLabel: "person", DstVertexLabel: "person"}, req.Value[2].AddEdgeKind)
	assert.Equal(t, &grootpb.AddEdgeKindRequest{EdgeLabel: "knows", SrcVertexLabel: "person", DstVertexLabel: "software"}, req.Value[3].AddEdgeKind)
	assert.Equal(t, "created", req.Value[4].AddEdgeKind.EdgeLabel)
	assert.Equal(t, "likes", req.Value[5].RemoveEdgeKind.EdgeLabel)
	assert.Equal(t, "likes", req.Value[6].DropEdgeType.Label)
	assert.Equal(t, "animal", req.Value[7].DropVertexType.Label)
}

func TestRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *Schema)
		want  error
	}{
		{"empty label", func(s *Schema) { s.AddVertexLabel("") }, ErrEmptyName},
		{"empty property", func(s *Schema) { s.AddVertexLabel("v").AddProperty("", grootpb.DataTypeInt, false) }, ErrEmptyName},
		{"duplicate property", func(s *Schema) {
			s.AddVertexLabel("v").AddPrimaryKey("id", grootpb.DataTypeLong).AddProperty("id", grootpb.DataTypeInt, false)
		}, ErrDuplicateProperty},
		{"dangling source", func(s *Schema) { s.AddEdgeLabel("e").Source("v") }, ErrIncompleteRelation},
		{"missing source", func(s *Schema) { s.AddEdgeLabel("e").Destination("v") }, ErrIncompleteRelation},
		{"relation without dst", func(s *Schema) { s.AddEdgeRelation("e", "v", "") }, ErrIncompleteRelation},
		{"drop empty", func(s *Schema) { s.DropVertexLabel("") }, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromGraphDef(nil)
			tt.build(s)
			_, err := s.Request()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Run("unbound", func(t *testing.T) {
		s := FromGraphDef(nil)
		s.DropVertexLabel("x")
		_, err := s.Update(context.Background())
		assert.ErrorIs(t, err, ErrUnbound)
	})

	t.Run("nothing queued sends nothing", func(t *testing.T) {
		sub := &fakeSubmitter{}
		id, err := FromGraphDef(nil).Bind(sub).Update(context.Background())
		require.NoError(t, err)
		assert.Zero(t, id)
		assert.Empty(t, sub.got)
	})

	t.Run("reloads from response", func(t *testing.T) {
		sub := &fakeSubmitter{resp: &grootpb.BatchSubmitResponse{DdlSnapshotID: 12, GraphDef: modernGraphDef()}}
		s := FromGraphDef(nil).Bind(sub)
		s.AddVertexLabel("person").AddPrimaryKey("id", grootpb.DataTypeLong)

		id, err := s.Update(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(12), id)
		require.Len(t, sub.got, 1)
		assert.Zero(t, s.Pending())
		assert.Equal(t, int64(4), s.Version())
		_, ok := s.EdgeLabel("knows")
		assert.True(t, ok)
	})

	t.Run("failure keeps queue", func(t *testing.T) {
		boom := errors.New("unavailable")
		sub := &fakeSubmitter{err: boom}
		s := FromGraphDef(nil).Bind(sub)
		s.DropVertexLabel("person")

		_, err := s.Update(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, s.Pending())
	})
}

func TestPlan(t *testing.T) {
	s := FromGraphDef(modernGraphDef())
	doc := Document{
		Vertices: []LabelSpec{
			{Label: "person", Properties: []PropertySpec{{Name: "id", Type: "long", PrimaryKey: true}}},
			{Label: "city", Properties: []PropertySpec{{Name: "name", Type: "str", PrimaryKey: true}}},
		},
		Edges: []LabelSpec{
			{Label: "knows", Relations: []RelationSpec{
				{Source: "person", Destination: "person"},
				{Source: "person", Destination: "city"},
			}},
			{Label: "livesIn", Relations: []RelationSpec{{Source: "person", Destination: "city"}}},
		},
	}

	n, err := s.Plan(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	req, err := s.Request()
	require.NoError(t, err)
	require.Len(t, req.Value, 4)
	assert.Equal(t, "city", req.Value[0].CreateVertexType.TypeDef.Label)
	assert.Equal(t, grootpb.DataTypeString, req.Value[0].CreateVertexType.TypeDef.Props[0].DataType)
	assert.Equal(t, &grootpb.AddEdgeKindRequest{EdgeLabel: "knows", SrcVertexLabel: "person", DstVertexLabel: "city"}, req.Value[1].AddEdgeKind)
	assert.Equal(t, "livesIn", req.Value[2].CreateEdgeType.TypeDef.Label)
	assert.Equal(t, "livesIn", req.Value[3].AddEdgeKind.EdgeLabel)
}

func TestPlan_BadType(t *testing.T) {
	s := FromGraphDef(nil)
	_, err := s.Plan(Document{Vertices: []LabelSpec{{Label: "v", Properties: []PropertySpec{{Name: "p", Type: "decimal"}}}}})
	assert.ErrorIs(t, err, ErrUnknownDataType)
	assert.Zero(t, s.Pending())
}

func TestDocument_RoundTripsThroughPlan(t *testing.T) {
	doc := FromGraphDef(modernGraphDef()).Document()
	require.Len(t, doc.Vertices, 2)
	assert.Equal(t, PropertySpec{Name: "id", Type: "LONG", PrimaryKey: true}, doc.Vertices[0].Properties[0])
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, []RelationSpec{{Source: "person", Destination: "person"}}, doc.Edges[0].Relations)

	empty := FromGraphDef(nil)
	n, err := empty.Plan(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in   string
		want grootpb.DataType
	}{
		{"LONG", grootpb.DataTypeLong},
		{"long", grootpb.DataTypeLong},
		{"int64", grootpb.DataTypeLong},
		{"string_list", grootpb.DataTypeStringList},
		{" Boolean ", grootpb.DataTypeBool},
		{"float64", grootpb.DataTypeDouble},
		{"str", grootpb.DataTypeString},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDataType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDataType("unknown")
	assert.ErrorIs(t, err, ErrUnknownDataType)
}
