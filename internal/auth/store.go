// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/model"
	"github.com/nontawat9304/mali-chat/internal/storage"
)

// Storage keys, session-scoped.
const (
	keyToken    = "access_token"
	keyRole     = "user_role"
	keyNickname = "user_nickname"
)

// LoginPath is the default authenticated entry point after login.
const LoginPath = "/login"

// =============================================================================
// SESSION STORE
// =============================================================================

// Subscriber receives every session change. A nil session means
// logged out.
type Subscriber func(*model.Session)

// Options wires the Store's collaborators.
type Options struct {
	// Storage is the session-scoped persistence adapter.
	Storage storage.Store

	// Client is the backend client used for login and registration.
	Client *api.Client

	// ClearTranscript empties the Conversation Router's message cache
	// on logout. Optional.
	ClearTranscript func()

	// Navigate triggers a screen transition. Optional.
	Navigate func(path string)
}

// Store is the single owner of the current Session.
// All methods are safe for concurrent use; subscriber fan-out is
// synchronous, not queued.
type Store struct {
	mu      sync.Mutex
	current *model.Session
	subs    []Subscriber

	storage         storage.Store
	client          *api.Client
	clearTranscript func()
	navigate        func(path string)
}

// NewStore creates a session store. The session starts empty; call
// RestoreOnStart to pick up persisted state.
func NewStore(opts Options) *Store {
	return &Store{
		storage:         opts.Storage,
		client:          opts.Client,
		clearTranscript: opts.ClearTranscript,
		navigate:        opts.Navigate,
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Nickname    string `json:"nickname"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Login authenticates against the identity backend. On success the
// session is persisted and published to all subscribers; on failure
// the prior state is untouched and the backend's error detail is
// surfaced (api.ErrInvalidCredentials for a 401).
func (s *Store) Login(ctx context.Context, identifier, secret string) (*model.Session, error) {
	// The login endpoint speaks OAuth2 password-flow form encoding,
	// so the identifier travels as "username".
	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", secret)

	var resp loginResponse
	if err := s.client.PostForm(ctx, "/auth/login", form, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	session := &model.Session{
		Nickname: resp.Nickname,
		Role:     model.AccountRole(resp.Role),
		Token:    resp.AccessToken,
	}
	if !session.Role.Valid() {
		session.Role = model.RoleMember
	}

	s.persist(session)
	s.publish(session)
	slog.Info("logged in", "nickname", session.Nickname, "role", session.Role)
	return session, nil
}

// Register creates an account. It does not authenticate; the caller
// must log in afterwards. A taken identifier surfaces as a 409
// *api.APIError, invalid input as a 422.
func (s *Store) Register(ctx context.Context, identifier, secret, displayName string) error {
	req := registerRequest{Email: identifier, Password: secret, Nickname: displayName}
	return s.client.PostJSON(ctx, "/auth/register", req, nil)
}

// Logout tears the session down: persisted state cleared, transcript
// cleared, nil published, navigation to the login entry point.
// Idempotent and best-effort; it never fails on empty storage.
func (s *Store) Logout() {
	s.teardown()
}

// ForceLogout is the system-initiated teardown wired into the outbound
// call mediator for the session-expired and backend-unreachable
// failure classes. Identical to Logout.
func (s *Store) ForceLogout(reason error) {
	slog.Warn("session teardown forced", "reason", reason)
	s.teardown()
}

// RestoreOnStart republishes a persisted session, if present, without
// contacting the backend. Validation is deferred to the first
// authenticated call. Runs once at process initialization.
func (s *Store) RestoreOnStart() {
	token, ok := s.storage.Get(keyToken)
	if !ok || token == "" {
		return
	}
	role, _ := s.storage.Get(keyRole)
	nickname, _ := s.storage.Get(keyNickname)

	session := &model.Session{
		Nickname: nickname,
		Role:     model.AccountRole(role),
		Token:    token,
	}
	if !session.Role.Valid() {
		// Tampered or truncated persisted state: discard rather than
		// resurrect a session that breaks the role invariant.
		s.clearPersisted()
		return
	}

	s.publish(session)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Current returns the current session, or nil when logged out.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Token returns the current bearer credential, or "". This is the
// mediator's TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// IsAdmin reports whether the current session holds the admin role.
func (s *Store) IsAdmin() bool {
	return s.Current().IsAdmin()
}

// Subscribe registers fn for session changes and immediately invokes
// it with the current value, so late subscribers converge.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	current := s.current
	s.mu.Unlock()

	fn(current)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) persist(session *model.Session) {
	// Best-effort: a persistence failure degrades restore-on-start,
	// not the live session.
	if err := s.storage.Set(keyToken, session.Token); err != nil {
		slog.Warn("failed to persist session", "error", err)
		return
	}
	s.storage.Set(keyRole, session.Role.String())
	s.storage.Set(keyNickname, session.Nickname)
}

func (s *Store) clearPersisted() {
	if err := s.storage.Clear(); err != nil {
		slog.Warn("failed to clear persisted session", "error", err)
	}
}

func (s *Store) teardown() {
	s.clearPersisted()
	if s.clearTranscript != nil {
		s.clearTranscript()
	}
	s.publish(nil)
	if s.navigate != nil {
		s.navigate(LoginPath)
	}
}

// publish swaps the current session and fans out synchronously.
// Callbacks run outside the lock so a subscriber may call back into
// the store.
func (s *Store) publish(session *model.Session) {
	s.mu.Lock()
	s.current = session
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}
