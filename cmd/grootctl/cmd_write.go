// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/grootclient/pkg/validation"
	"github.com/AleutianAI/grootclient/services/groot/client"
	"github.com/AleutianAI/grootclient/services/groot/record"
)

// writeFlags are shared by the vertex and edge subcommands.
type writeFlags struct {
	label    string
	pk       []string
	props    []string
	srcLabel string
	srcPK    []string
	dstLabel string
	dstPK    []string
}

func (f writeFlags) validateLabels(kind string) error {
	labels := map[string]string{"label": f.label}
	if kind == "edge" {
		labels["src-label"] = f.srcLabel
		labels["dst-label"] = f.dstLabel
	}
	for flag, label := range labels {
		if err := validation.ValidateLabel(label); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	return nil
}

// newEntityCmd builds "vertex" or "edge" with insert, update and delete.
func newEntityCmd(a *app, kind string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Write a single %s", kind),
	}
	for _, op := range []record.WriteType{record.Insert, record.Update, record.Delete} {
		cmd.AddCommand(newWriteCmd(a, kind, op))
	}
	return cmd
}

func newWriteCmd(a *app, kind string, op record.WriteType) *cobra.Command {
	var f writeFlags
	name := map[record.WriteType]string{record.Insert: "insert", record.Update: "update", record.Delete: "delete"}[op]
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s one %s", name, kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.validateLabels(kind); err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			g := client.NewGraph(nil, conn)

			var snapshot int64
			if kind == "vertex" {
				snapshot, err = writeVertex(ctx, g, op, f)
			} else {
				snapshot, err = writeEdge(ctx, g, op, f)
			}
			if err != nil {
				return err
			}
			return a.render(map[string]any{"kind": kind, "op": name, "snapshot_id": snapshot}, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s %s at snapshot %d\n", name, kind, f.label, snapshot)
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.label, "label", "", "label name")
	fl.StringArrayVar(&f.props, "prop", nil, "property key=value (repeatable)")
	if kind == "vertex" {
		fl.StringArrayVar(&f.pk, "pk", nil, "primary key key=value (repeatable)")
	} else {
		fl.StringVar(&f.srcLabel, "src-label", "", "source vertex label")
		fl.StringArrayVar(&f.srcPK, "src-pk", nil, "source primary key key=value (repeatable)")
		fl.StringVar(&f.dstLabel, "dst-label", "", "destination vertex label")
		fl.StringArrayVar(&f.dstPK, "dst-pk", nil, "destination primary key key=value (repeatable)")
		_ = cmd.MarkFlagRequired("src-label")
		_ = cmd.MarkFlagRequired("dst-label")
	}
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func writeVertex(ctx context.Context, g *client.Graph, op record.WriteType, f writeFlags) (int64, error) {
	pk, err := parseAssignments("pk", f.pk)
	if err != nil {
		return 0, err
	}
	if len(pk) == 0 {
		return 0, errors.New("at least one --pk is required")
	}
	key := record.NewVertexKey(f.label, pk)
	if op == record.Delete {
		return g.DeleteVertex(ctx, key)
	}
	props, err := parseAssignments("prop", f.props)
	if err != nil {
		return 0, err
	}
	v := record.VertexRecord{Key: key, Properties: props}
	if op == record.Update {
		return g.UpdateVertexProperties(ctx, v)
	}
	return g.InsertVertex(ctx, v)
}

func writeEdge(ctx context.Context, g *client.Graph, op record.WriteType, f writeFlags) (int64, error) {
	srcPK, err := parseAssignments("src-pk", f.srcPK)
	if err != nil {
		return 0, err
	}
	dstPK, err := parseAssignments("dst-pk", f.dstPK)
	if err != nil {
		return 0, err
	}
	key := record.NewEdgeKey(f.label,
		record.NewVertexKey(f.srcLabel, srcPK),
		record.NewVertexKey(f.dstLabel, dstPK))
	if op == record.Delete {
		return g.DeleteEdge(ctx, key)
	}
	props, err := parseAssignments("prop", f.props)
	if err != nil {
		return 0, err
	}
	e := record.EdgeRecord{Key: key, Properties: props}
	if op == record.Update {
		return g.UpdateEdgeProperties(ctx, e)
	}
	return g.InsertEdge(ctx, e)
}
