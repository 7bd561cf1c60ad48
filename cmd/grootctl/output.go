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
	"strings"

	"github.com/bytedance/sonic"

	"github.com/AleutianAI/grootclient/pkg/validation"
)

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func (a *app) wantJSON() bool {
	return a.jsonOut || !a.isTerminal()
}

// render prints v as indented JSON, or calls text for a terminal.
func (a *app) render(v any, text func(w io.Writer)) error {
	if !a.wantJSON() {
		text(a.out)
		return nil
	}
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

// parseAssignments turns repeated "key=value" flags into a map. Values stay
// strings; the store parses them against the property's data type.
func parseAssignments(flag string, pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s %q: want key=value", flag, p)
		}
		if err := validation.ValidatePropertyName(k); err != nil {
			return nil, fmt.Errorf("--%s: %w", flag, err)
		}
		out[k] = v
	}
	return out, nil
}
