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
	"errors"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// ErrNotMessage is returned when the codec is handed a foreign type.
var ErrNotMessage = errors.New("grootpb: value is not a grootpb message")

// Codec marshals grootpb messages for gRPC.
//
// It reports the name "proto" so the content subtype on the wire is the
// standard application/grpc+proto. It is installed per connection with
// grpc.ForceCodec / grpc.ForceServerCodec rather than registered globally,
// which would replace the codec used by other gRPC clients in the process.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotMessage, v)
	}
	return Marshal(m), nil
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotMessage, v)
	}
	if err := Unmarshal(data, m); err != nil {
		return fmt.Errorf("grootpb: decode %T: %w", v, err)
	}
	return nil
}

// Name implements encoding.Codec.
func (Codec) Name() string {
	return "proto"
}
