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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newGremlinCmd(a *app) *cobra.Command {
	var bindings []string
	cmd := &cobra.Command{
		Use:   "gremlin QUERY",
		Short: "Run a Gremlin traversal, e.g. g.V().count()",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseAssignments("bind", bindings)
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			g, err := conn.Gremlin()
			if err != nil {
				return err
			}
			results, err := g.Submit(ctx, strings.Join(args, " "), vars)
			if err != nil {
				return err
			}
			if results == nil {
				results = []json.RawMessage{}
			}
			return a.render(results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintln(w, string(r))
				}
			})
		},
	}
	cmd.Flags().StringArrayVar(&bindings, "bind", nil, "script binding name=value (repeatable)")
	return cmd
}
