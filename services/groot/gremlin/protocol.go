// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gremlin

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// MimeType is the serializer requested for every frame.
const MimeType = "application/vnd.gremlin-v3.0+json;types=false"

// Response status codes used by Gremlin Server.
const (
	StatusSuccess                 = 200
	StatusNoContent               = 204
	StatusPartialContent          = 206
	StatusUnauthorized            = 401
	StatusAuthenticate            = 407
	StatusMalformedRequest        = 498
	StatusInvalidRequestArguments = 499
	StatusServerError             = 500
	StatusScriptEvaluationError   = 597
	StatusServerTimeout           = 598
	StatusSerializationError      = 599
)

var (
	// ErrClosed is returned by calls on a closed client.
	ErrClosed = errors.New("gremlin client is closed")

	// ErrAuthRequired is returned when the server asks for credentials and
	// none are configured.
	ErrAuthRequired = errors.New("gremlin server requires authentication")
)

// ServerError is a non-success status reported by the server.
type ServerError struct {
	Code      int
	Message   string
	RequestID string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gremlin: status %d", e.Code)
	}
	return fmt.Sprintf("gremlin: status %d: %s", e.Code, e.Message)
}

// request is the JSON body of a frame.
type request struct {
	RequestID string         `json:"requestId"`
	Op        string         `json:"op"`
	Processor string         `json:"processor"`
	Args      map[string]any `json:"args"`
}

// response is one server message. A request may produce several.
type response struct {
	RequestID string `json:"requestId"`
	Status    struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
}

func evalRequest(id, script string, bindings map[string]any, source string) request {
	if bindings == nil {
		bindings = map[string]any{}
	}
	return request{
		RequestID: id,
		Op:        "eval",
		Args: map[string]any{
			"gremlin":  script,
			"bindings": bindings,
			"language": "gremlin-groovy",
			"aliases":  map[string]string{"g": source},
		},
	}
}

func authRequest(id, username string, password []byte) request {
	return request{
		RequestID: id,
		Op:        "authentication",
		Args: map[string]any{
			"sasl":          saslPlain(username, password),
			"saslMechanism": "PLAIN",
		},
	}
}

// saslPlain encodes PLAIN credentials with an empty authorization identity.
// The plaintext scratch buffer is wiped before returning.
func saslPlain(username string, password []byte) string {
	buf := make([]byte, 0, len(username)+len(password)+2)
	buf = append(buf, 0)
	buf = append(buf, username...)
	buf = append(buf, 0)
	buf = append(buf, password...)
	defer memguard.WipeBytes(buf)
	return base64.StdEncoding.EncodeToString(buf)
}

// encodeFrame prefixes the JSON body with the length-tagged mime type.
func encodeFrame(req request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	frame := make([]byte, 0, 1+len(MimeType)+len(body))
	frame = append(frame, byte(len(MimeType)))
	frame = append(frame, MimeType...)
	return append(frame, body...), nil
}

// appendData adds the result data of one response to out. Arrays are
// flattened; any other value is kept whole.
func appendData(out []json.RawMessage, data json.RawMessage) ([]json.RawMessage, error) {
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if data[0] != '[' {
		return append(out, data), nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return out, fmt.Errorf("decode result data: %w", err)
	}
	return append(out, items...), nil
}
