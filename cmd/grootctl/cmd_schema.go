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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/grootclient/services/groot/schema"
)

var validate = validator.New()

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and change the graph schema",
	}
	cmd.AddCommand(newSchemaShowCmd(a), newSchemaApplyCmd(a))
	return cmd
}

func newSchemaShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			g, err := conn.G(ctx)
			if err != nil {
				return err
			}
			s := g.Schema()
			out := struct {
				Version int64 `json:"version"`
				schema.Document
			}{s.Version(), s.Document()}
			return a.render(out, func(w io.Writer) {
				fmt.Fprint(w, s.String())
			})
		},
	}
}

// readDocument parses and validates a schema file.
func readDocument(path string) (schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, err
	}
	var doc schema.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return schema.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validate.Struct(doc); err != nil {
		return schema.Document{}, fmt.Errorf("invalid schema %s: %w", path, err)
	}
	return doc, nil
}

func newSchemaApplyCmd(a *app) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "apply -f FILE",
		Short: "Create missing labels and relations from a schema file",
		Long: `Reads a YAML schema file and creates every vertex label, edge label and
edge relation it declares that the store does not have yet. Existing labels
are left unchanged and nothing is dropped, so apply can be repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := readDocument(file)
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			g, err := conn.G(ctx)
			if err != nil {
				return err
			}
			s := g.Schema()
			n, err := s.Plan(doc)
			if err != nil {
				return err
			}

			result := map[string]any{"operations": n, "dry_run": dryRun}
			if n > 0 && !dryRun {
				snapshot, err := s.Update(ctx)
				if err != nil {
					return err
				}
				result["ddl_snapshot_id"] = snapshot
				result["version"] = s.Version()
				a.log().Info("schema applied", slog.String("file", file), slog.Int("operations", n))
			}
			return a.render(result, func(w io.Writer) {
				switch {
				case n == 0:
					fmt.Fprintln(w, "schema is up to date")
				case dryRun:
					fmt.Fprintf(w, "%d operations would be submitted\n", n)
				default:
					fmt.Fprintf(w, "applied %d operations, schema version %d\n", n, s.Version())
				}
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML schema file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report how many operations are needed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
