// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&ClientConfig{BaseURL: server.URL})
	return client, server
}

// =============================================================================
// CREDENTIAL INJECTION
// =============================================================================

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	client.SetTokenSource(func() string { return "tok-123" })

	if err := client.Get(context.Background(), "/history", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	var present bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, present = r.Header.Get("Authorization"), r.Header.Get("Authorization") != ""
		w.Write([]byte(`{}`))
	}))

	if err := client.Get(context.Background(), "/history", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if present {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

func TestClient_401WithTokenForcesLogout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	client.SetTokenSource(func() string { return "stale-token" })

	var loggedOut atomic.Int32
	var reason error
	client.SetForcedLogoutHook(func(r error) {
		loggedOut.Add(1)
		reason = r
	})

	err := client.Get(context.Background(), "/history", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if loggedOut.Load() != 1 {
		t.Errorf("forced logout ran %d times, want 1", loggedOut.Load())
	}
	if !errors.Is(reason, ErrSessionExpired) {
		t.Errorf("teardown reason = %v, want ErrSessionExpired", reason)
	}
}

func TestClient_401WithoutTokenIsInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))

	var loggedOut atomic.Int32
	client.SetForcedLogoutHook(func(error) { loggedOut.Add(1) })

	err := client.PostForm(context.Background(), "/auth/login", nil, nil)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if loggedOut.Load() != 0 {
		t.Error("failed login must not force a logout")
	}
}

func TestClient_GatewayStatusesAreUnreachable(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		status := status
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		var loggedOut atomic.Int32
		var notified atomic.Int32
		client.SetForcedLogoutHook(func(error) { loggedOut.Add(1) })
		client.SetNotifier(func(string) { notified.Add(1) })

		err := client.Get(context.Background(), "/history", nil)
		if !IsUnreachable(err) {
			t.Errorf("status %d: err = %v, want unreachable class", status, err)
		}
		if loggedOut.Load() != 1 {
			t.Errorf("status %d: forced logout ran %d times, want 1", status, loggedOut.Load())
		}
		if notified.Load() != 1 {
			t.Errorf("status %d: blocking notice shown %d times, want 1", status, notified.Load())
		}
	}
}

func TestClient_TransportFailureIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(&ClientConfig{BaseURL: server.URL})
	server.Close() // nothing listening anymore

	var loggedOut atomic.Int32
	client.SetForcedLogoutHook(func(error) { loggedOut.Add(1) })

	err := client.Get(context.Background(), "/history", nil)
	if !IsUnreachable(err) {
		t.Fatalf("err = %v, want unreachable class", err)
	}
	if loggedOut.Load() != 1 {
		t.Errorf("forced logout ran %d times, want 1", loggedOut.Load())
	}
}

func TestClient_OtherStatusesPassThrough(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	}))

	var loggedOut atomic.Int32
	client.SetForcedLogoutHook(func(error) { loggedOut.Add(1) })

	err := client.PostJSON(context.Background(), "/auth/register", map[string]string{}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || !apiErr.IsConflict() {
		t.Errorf("Status = %d, want 409", apiErr.Status)
	}
	if apiErr.Detail != "Email already registered" {
		t.Errorf("Detail = %q", apiErr.Detail)
	}
	if loggedOut.Load() != 0 {
		t.Error("ordinary failures must not force a logout")
	}
}

// =============================================================================
// TEARDOWN GUARANTEES
// =============================================================================

func TestClient_ForcedLogoutDoesNotRecurse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	client.SetTokenSource(func() string { return "stale" })

	var calls atomic.Int32
	client.SetForcedLogoutHook(func(error) {
		calls.Add(1)
		// A logout-triggered request that also fails must not start
		// another teardown.
		_ = client.Get(context.Background(), "/history", nil)
	})

	_ = client.Get(context.Background(), "/history", nil)

	if calls.Load() != 1 {
		t.Errorf("forced logout ran %d times, want 1", calls.Load())
	}
}

// =============================================================================
// DECODING
// =============================================================================

func TestClient_DecodesJSONResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"สวัสดีค่ะ","model_source":"local/qwen"}`))
	}))

	var out struct {
		Reply       string `json:"reply"`
		ModelSource string `json:"model_source"`
	}
	if err := client.PostJSON(context.Background(), "/chat", map[string]string{"message": "hi"}, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out.Reply != "สวัสดีค่ะ" || out.ModelSource != "local/qwen" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestClient_GetBytes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file-contents"))
	}))

	data, err := client.GetBytes(context.Background(), "/download/notes.txt")
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if string(data) != "file-contents" {
		t.Errorf("data = %q", data)
	}
}
