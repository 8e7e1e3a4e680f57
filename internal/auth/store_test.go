// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/model"
	"github.com/nontawat9304/mali-chat/internal/storage"
)

// loginHandler speaks the backend's auth contract: form-encoded login,
// JSON register.
func loginHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") == "mali@example.com" && r.PostFormValue("password") == "s3cret" {
			w.Write([]byte(`{"access_token":"tok-1","role":"user","nickname":"Mali"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	})
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func newTestStore(t *testing.T, handler http.Handler) (*Store, storage.Store, *api.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.NewClient(&api.ClientConfig{BaseURL: server.URL})
	kv := storage.NewMemoryStore()
	store := NewStore(Options{Storage: kv, Client: client})
	client.SetTokenSource(store.Token)
	return store, kv, client
}

// =============================================================================
// LOGIN / REGISTER
// =============================================================================

func TestStore_LoginSuccess(t *testing.T) {
	store, kv, _ := newTestStore(t, loginHandler(t))

	var published *model.Session
	store.Subscribe(func(s *model.Session) { published = s })

	session, err := store.Login(context.Background(), "mali@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Nickname != "Mali" || session.Role != model.RoleMember || session.Token != "tok-1" {
		t.Errorf("session = %+v", session)
	}
	if published == nil || published.Token != "tok-1" {
		t.Error("login was not published to subscribers")
	}

	// Persisted for restore-on-start
	if v, _ := kv.Get("access_token"); v != "tok-1" {
		t.Errorf("persisted token = %q", v)
	}
	if v, _ := kv.Get("user_role"); v != "user" {
		t.Errorf("persisted role = %q", v)
	}
}

func TestStore_LoginFailureLeavesStateUntouched(t *testing.T) {
	store, kv, _ := newTestStore(t, loginHandler(t))

	_, err := store.Login(context.Background(), "mali@example.com", "wrong")
	if !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if store.Current() != nil {
		t.Error("failed login must not produce a session")
	}
	if _, ok := kv.Get("access_token"); ok {
		t.Error("failed login must not persist anything")
	}
}

func TestStore_RegisterDoesNotAuthenticate(t *testing.T) {
	store, _, _ := newTestStore(t, loginHandler(t))

	if err := store.Register(context.Background(), "new@example.com", "pw", "Newbie"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if store.Current() != nil {
		t.Error("register must not create a session")
	}
}

func TestStore_RegisterConflict(t *testing.T) {
	store, _, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	}))

	err := store.Register(context.Background(), "taken@example.com", "pw", "Dup")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsConflict() {
		t.Fatalf("err = %v, want 409 *APIError", err)
	}
}

// =============================================================================
// LOGOUT
// =============================================================================

func TestStore_Logout(t *testing.T) {
	server := httptest.NewServer(loginHandler(t))
	defer server.Close()

	client := api.NewClient(&api.ClientConfig{BaseURL: server.URL})
	kv := storage.NewMemoryStore()

	var transcriptCleared bool
	var navigatedTo string
	store := NewStore(Options{
		Storage:         kv,
		Client:          client,
		ClearTranscript: func() { transcriptCleared = true },
		Navigate:        func(path string) { navigatedTo = path },
	})

	if _, err := store.Login(context.Background(), "mali@example.com", "s3cret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	store.Logout()

	if store.Current() != nil {
		t.Error("session survived logout")
	}
	if _, ok := kv.Get("access_token"); ok {
		t.Error("persisted token survived logout")
	}
	if !transcriptCleared {
		t.Error("logout must clear the transcript")
	}
	if navigatedTo != LoginPath {
		t.Errorf("navigated to %q, want %q", navigatedTo, LoginPath)
	}

	// Idempotent teardown: a second logout is a no-op, not a panic.
	store.Logout()
	store.RestoreOnStart()
	if store.Current() != nil {
		t.Error("restore after logout must yield no session")
	}
}

// =============================================================================
// RESTORE ON START
// =============================================================================

func TestStore_RestoreOnStart(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set("access_token", "persisted-tok")
	kv.Set("user_role", "admin")
	kv.Set("user_nickname", "Boss")

	// No HTTP server at all: restore must not touch the network.
	store := NewStore(Options{Storage: kv, Client: api.NewClient(nil)})
	store.RestoreOnStart()

	session := store.Current()
	if session == nil {
		t.Fatal("expected restored session")
	}
	if session.Token != "persisted-tok" || session.Role != model.RoleAdmin || session.Nickname != "Boss" {
		t.Errorf("session = %+v", session)
	}
	if !store.IsAdmin() {
		t.Error("IsAdmin should be true for admin role")
	}
}

func TestStore_RestoreDiscardsInvalidRole(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set("access_token", "tok")
	kv.Set("user_role", "superuser")

	store := NewStore(Options{Storage: kv, Client: api.NewClient(nil)})
	store.RestoreOnStart()

	if store.Current() != nil {
		t.Error("session with out-of-enum role must be discarded")
	}
	if _, ok := kv.Get("access_token"); ok {
		t.Error("invalid persisted state must be cleared")
	}
}

func TestStore_RestoreWithEmptyStorage(t *testing.T) {
	store := NewStore(Options{Storage: storage.NewMemoryStore(), Client: api.NewClient(nil)})
	store.RestoreOnStart()
	if store.Current() != nil {
		t.Error("empty storage must restore to logged-out")
	}
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

func TestStore_SubscribeReceivesCurrentValueImmediately(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set("access_token", "tok")
	kv.Set("user_role", "user")
	kv.Set("user_nickname", "Mali")

	store := NewStore(Options{Storage: kv, Client: api.NewClient(nil)})
	store.RestoreOnStart()

	var got *model.Session
	store.Subscribe(func(s *model.Session) { got = s })
	if got == nil || got.Token != "tok" {
		t.Error("late subscriber did not receive current session")
	}
}
