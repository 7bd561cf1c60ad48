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
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a scripted Gremlin Server. handle is called once per
// received request and returns the responses to send back.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	dials    atomic.Int32
	requests chan request
	handle   func(req request) []map[string]any
}

func newFakeServer(t *testing.T, handle func(req request) []map[string]any) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, requests: make(chan request, 16), handle: handle}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/gremlin", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		f.dials.Add(1)
		for {
			typ, frame, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if !assert.Equal(t, websocket.BinaryMessage, typ) {
				return
			}
			req, ok := decodeFrame(t, frame)
			if !ok {
				return
			}
			f.requests <- req
			for _, resp := range f.handle(req) {
				if err := ws.WriteJSON(resp); err != nil {
					return
				}
			}
		}
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) endpoint() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func decodeFrame(t *testing.T, frame []byte) (request, bool) {
	n := int(frame[0])
	if !assert.Equal(t, MimeType, string(frame[1:1+n])) {
		return request{}, false
	}
	var req request
	return req, assert.NoError(t, json.Unmarshal(frame[1+n:], &req))
}

func reply(id string, code int, data any) map[string]any {
	return map[string]any{
		"requestId": id,
		"status":    map[string]any{"code": code, "message": "", "attributes": map[string]any{}},
		"result":    map[string]any{"data": data, "meta": map[string]any{}},
	}
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSubmit_AccumulatesPartialResults(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return []map[string]any{
			reply(req.RequestID, StatusPartialContent, []any{1, 2}),
			reply(req.RequestID, StatusPartialContent, []any{3}),
			reply(req.RequestID, StatusSuccess, []any{4}),
		}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	items, err := c.Submit(context.Background(), "g.V().values('id')", map[string]any{"x": 1})
	require.NoError(t, err)

	var got []int
	for _, it := range items {
		var n int
		require.NoError(t, json.Unmarshal(it, &n))
		got = append(got, n)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got)

	req := <-f.requests
	assert.Equal(t, "eval", req.Op)
	assert.Equal(t, "g.V().values('id')", req.Args["gremlin"])
	assert.Equal(t, "gremlin-groovy", req.Args["language"])
	assert.Equal(t, map[string]any{"g": "g"}, req.Args["aliases"])
	assert.Equal(t, map[string]any{"x": float64(1)}, req.Args["bindings"])
	_, err = uuid.Parse(req.RequestID)
	assert.NoError(t, err)
}

func TestSubmit_NoContent(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return []map[string]any{reply(req.RequestID, StatusNoContent, nil)}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	items, err := c.Submit(context.Background(), "g.V().drop()", nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	req := <-f.requests
	assert.Equal(t, map[string]any{}, req.Args["bindings"])
}

func TestSubmit_ServerError(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		if strings.Contains(req.Args["gremlin"].(string), "bad") {
			resp := reply(req.RequestID, StatusScriptEvaluationError, nil)
			resp["status"].(map[string]any)["message"] = "No such property: bad"
			return []map[string]any{resp}
		}
		return []map[string]any{reply(req.RequestID, StatusSuccess, []any{"ok"})}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	_, err := c.Submit(context.Background(), "bad", nil)
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusScriptEvaluationError, serr.Code)
	assert.Contains(t, serr.Error(), "No such property")

	// The link survives a server-side failure.
	items, err := c.Submit(context.Background(), "good", nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), f.dials.Load())
}

func TestSubmit_SASLPlain(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		if req.Op == "eval" {
			return []map[string]any{reply(req.RequestID, StatusAuthenticate, nil)}
		}
		want := base64.StdEncoding.EncodeToString([]byte("\x00alice\x00secret"))
		if req.Args["sasl"] != want {
			return []map[string]any{reply(req.RequestID, StatusUnauthorized, nil)}
		}
		return []map[string]any{reply(req.RequestID, StatusSuccess, []any{42})}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint(), Username: "alice", Password: "secret"})

	n, err := c.Traversal().Count(context.Background(), "person")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	eval := <-f.requests
	auth := <-f.requests
	assert.Equal(t, "authentication", auth.Op)
	assert.Equal(t, eval.RequestID, auth.RequestID)
	assert.Equal(t, "PLAIN", auth.Args["saslMechanism"])
	assert.Equal(t, map[string]any{"l": "person"}, eval.Args["bindings"])
}

func TestSubmit_AuthWithoutCredentials(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return []map[string]any{reply(req.RequestID, StatusAuthenticate, nil)}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint(), Username: "alice"})

	_, err := c.Submit(context.Background(), "g.V()", nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestSubmit_ContextDeadline(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return nil // never answers
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Submit(ctx, "g.V()", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSubmit_RedialsAfterTransportFailure(t *testing.T) {
	var calls atomic.Int32
	f := newFakeServer(t, func(req request) []map[string]any {
		if calls.Add(1) == 1 {
			return nil
		}
		return []map[string]any{reply(req.RequestID, StatusSuccess, []any{true})}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err := c.Submit(ctx, "g.V()", nil)
	cancel()
	require.Error(t, err)

	items, err := c.Submit(context.Background(), "g.V()", nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), f.dials.Load())
}

func TestClient_LazyDialAndClose(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:1/gremlin", c.URL())
	assert.Equal(t, "g", c.Traversal().Source())

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err = c.Submit(context.Background(), "g.V()", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_PasswordNotKeptInConfig(t *testing.T) {
	c := newTestClient(t, Config{Endpoint: "127.0.0.1:1", Username: "alice", Password: "secret"})
	assert.Empty(t, c.config.Password)
	require.NotNil(t, c.secret)
}

func TestSASLPlain(t *testing.T) {
	got := saslPlain("alice", []byte("secret"))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x00alice\x00secret")), got)
}

func TestClient_CloseInterruptsPendingRequest(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return nil // never answers
	})
	c, err := NewClient(Config{Endpoint: f.endpoint()})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "g.V()", nil)
		errc <- err
	}()
	<-f.requests

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return while a request was pending")
	}

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("pending Submit was not released by Close")
	}
	assert.NoError(t, c.Close())
}

func TestClient_Connect(t *testing.T) {
	f := newFakeServer(t, func(req request) []map[string]any {
		return []map[string]any{reply(req.RequestID, StatusSuccess, []any{1})}
	})
	c := newTestClient(t, Config{Endpoint: f.endpoint()})

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	_, err := c.Submit(context.Background(), "g.V()", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.dials.Load())

	bad := newTestClient(t, Config{Endpoint: "127.0.0.1:1", HandshakeTimeout: time.Second})
	assert.Error(t, bad.Connect(context.Background()))

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8182/gremlin", URL("localhost:8182"))
	assert.Equal(t, "wss://groot.example/gremlin", URL("wss://groot.example/gremlin"))
}

func TestAppendData(t *testing.T) {
	out, err := appendData(nil, json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = appendData(out, json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	out, err = appendData(out, json.RawMessage(`[1,"x"]`))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.JSONEq(t, `{"a":1}`, string(out[0]))
	assert.JSONEq(t, `"x"`, string(out[2]))
}
