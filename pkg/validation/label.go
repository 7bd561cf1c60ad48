// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided graph identifiers before they are
// sent to the store.
//
// Labels and property names from flags and load files end up in DDL
// requests and Gremlin steps, so they are restricted to a conservative
// identifier alphabet.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is wrapped by every validation failure.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// identifierPattern matches labels and property names.
// Allows: letters, digits, underscore and hyphen, not starting with a digit
// or hyphen. Max length: 128 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]{0,127}$`)

// ValidateLabel validates a vertex or edge label.
//
// Valid labels:
//   - 1-128 characters
//   - Letters, digits, underscore and hyphen
//   - First character is a letter or underscore
//
// Example:
//
//	if err := validation.ValidateLabel(label); err != nil {
//	    return fmt.Errorf("--label: %w", err)
//	}
func ValidateLabel(label string) error {
	return validate("label", label)
}

// ValidatePropertyName validates a property or primary key name.
func ValidatePropertyName(name string) error {
	return validate("property name", name)
}

// ValidatePropertyNames validates every key of props.
// Returns an error listing all invalid names if any fail validation.
func ValidatePropertyNames[V any](props map[string]V) error {
	var invalid []string
	for name := range props {
		if !identifierPattern.MatchString(name) {
			invalid = append(invalid, fmt.Sprintf("%q", name))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: property names %s", ErrInvalidIdentifier, strings.Join(invalid, ", "))
	}
	return nil
}

func validate(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidIdentifier, kind)
	}
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("%w: %s %q (letters, digits, _ and - only, at most 128 chars)", ErrInvalidIdentifier, kind, s)
	}
	return nil
}
