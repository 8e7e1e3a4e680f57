// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/model"
	"github.com/nontawat9304/mali-chat/internal/storage"
)

// Storage keys.
const (
	// keyHistory holds the serialized transcript, session-scoped.
	keyHistory = "chat_history"

	// keyRemoteEndpoint holds the operator's remote inference URL,
	// device-scoped: it is a compute-location choice, not an identity,
	// and survives login/logout.
	keyRemoteEndpoint = "custom_api_url"
)

// failureReply is appended in place of an assistant turn when a chat
// request fails locally, so the turn is never silently dropped.
const failureReply = "Something went wrong. Please try again."

// =============================================================================
// CONVERSATION ROUTER
// =============================================================================

// Router owns the transcript and the backend's memory/training
// surface. The transcript hydrates lazily from session-scoped storage
// and every mutation writes the full sequence back (write-through).
//
// Callers serialize chat sends (one outstanding at a time) by policy;
// the router does not enforce that mutual exclusion itself.
type Router struct {
	mu       sync.Mutex
	messages []model.Message
	hydrated bool

	transcripts storage.Store // session-scoped
	settings    storage.Store // device-scoped
	client      *api.Client

	// endpointOverride is a process-local remote endpoint that shadows
	// the persisted device setting without replacing it. Written once
	// during startup, before any sends.
	endpointOverride string
}

// NewRouter creates a conversation router. transcripts is the
// session-scoped store for the message cache; settings is the
// device-scoped store for the remote endpoint.
func NewRouter(transcripts, settings storage.Store, client *api.Client) *Router {
	return &Router{
		transcripts: transcripts,
		settings:    settings,
		client:      client,
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatRequest struct {
	Message      string `json:"message"`
	MuteAudio    bool   `json:"mute_audio"`
	RemoteLLMURL string `json:"remote_llm_url,omitempty"`
}

type trainTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Scope string `json:"scope,omitempty"`
}

type personaRequest struct {
	PersonaText string `json:"persona_text"`
}

type personaResponse struct {
	Persona string `json:"persona"`
}

type forgetRequest struct {
	Filename string `json:"filename"`
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Messages returns a copy of the transcript in insertion order.
func (r *Router) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrateLocked()

	out := make([]model.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Clear empties the transcript and its persisted copy. Used by both
// explicit user action and the forced-logout teardown; never fails on
// already-empty state.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.hydrated = true
	if err := r.transcripts.Delete(keyHistory); err != nil {
		slog.Warn("failed to clear persisted transcript", "error", err)
	}
}

// append adds a message and re-serializes the full sequence to
// storage.
func (r *Router) append(msg model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrateLocked()
	r.messages = append(r.messages, msg)
	r.flushLocked()
}

func (r *Router) flushLocked() {
	data, err := json.Marshal(r.messages)
	if err != nil {
		slog.Warn("failed to serialize transcript", "error", err)
		return
	}
	if err := r.transcripts.Set(keyHistory, string(data)); err != nil {
		slog.Warn("failed to persist transcript", "error", err)
	}
}

// hydrateLocked loads the persisted transcript once. Corrupt state is
// discarded; the next append replaces it.
func (r *Router) hydrateLocked() {
	if r.hydrated {
		return
	}
	r.hydrated = true

	raw, ok := r.transcripts.Get(keyHistory)
	if !ok || raw == "" {
		return
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		slog.Warn("discarding unreadable transcript", "error", err)
		return
	}
	r.messages = msgs
}

// =============================================================================
// CHAT
// =============================================================================

// Send appends a user message, asks the backend for a reply, and
// appends the assistant's answer tagged with the model source the
// backend reports. The configured remote endpoint rides along so the
// backend can delegate inference; absent means "use the local default
// model".
//
// On a local failure a generic failure line is appended in the
// assistant's place. The session-expired and unreachable classes skip
// that append: the teardown they trigger has already cleared the
// transcript.
func (r *Router) Send(ctx context.Context, text string, muteAudio bool) (*model.ChatReply, error) {
	r.append(model.NewUserMessage(text))

	req := chatRequest{Message: text, MuteAudio: muteAudio}
	if endpoint, ok := r.RemoteEndpoint(); ok {
		req.RemoteLLMURL = endpoint
	}

	var reply model.ChatReply
	if err := r.client.PostJSON(ctx, "/chat", req, &reply); err != nil {
		if !api.IsUnreachable(err) && !api.IsAuthFailure(err) {
			r.append(model.NewAssistantMessage(failureReply, ""))
		}
		return nil, err
	}

	r.append(model.NewAssistantMessage(reply.Reply, reply.ModelSource))
	return &reply, nil
}

// SendVoice uploads a recorded voice message. The backend transcribes
// it and answers like a normal chat turn; the transcription becomes
// the user message in the transcript.
func (r *Router) SendVoice(ctx context.Context, fileName string, audio io.Reader) (*model.ChatReply, error) {
	var reply model.ChatReply
	err := r.client.PostMultipart(ctx, "/voice-chat", nil, "file", fileName, audio, &reply)
	if err != nil {
		return nil, err
	}

	if reply.Transcription != "" {
		r.append(model.NewUserMessage(reply.Transcription))
	}
	r.append(model.NewAssistantMessage(reply.Reply, reply.ModelSource))
	return &reply, nil
}

// =============================================================================
// MEMORY / TRAINING SURFACE
// =============================================================================

// UploadFile teaches the assistant from a file. Files are stored
// locally regardless of the remote endpoint. A global scope requires
// the admin role, enforced server-side.
func (r *Router) UploadFile(ctx context.Context, fileName string, content io.Reader, scope model.TrainingScope) error {
	fields := map[string]string{}
	if scope != "" {
		fields["scope"] = string(scope)
	}
	return r.client.PostMultipart(ctx, "/train", fields, "file", fileName, content, nil)
}

// TrainText teaches the assistant from typed text.
func (r *Router) TrainText(ctx context.Context, title, body string, scope model.TrainingScope) error {
	return r.client.PostJSON(ctx, "/train-text", trainTextRequest{
		Title: title,
		Text:  body,
		Scope: string(scope),
	}, nil)
}

// UpdatePersona replaces the assistant's persona text.
func (r *Router) UpdatePersona(ctx context.Context, text string) error {
	return r.client.PostJSON(ctx, "/persona", personaRequest{PersonaText: text}, nil)
}

// GetPersona returns the current persona text.
func (r *Router) GetPersona(ctx context.Context) (string, error) {
	var resp personaResponse
	if err := r.client.Get(ctx, "/persona", &resp); err != nil {
		return "", err
	}
	return resp.Persona, nil
}

// Forget removes a taught item by filename.
func (r *Router) Forget(ctx context.Context, fileName string) error {
	return r.client.PostJSON(ctx, "/forget", forgetRequest{Filename: fileName}, nil)
}

// GetHistory lists the training history.
func (r *Router) GetHistory(ctx context.Context) ([]model.TrainingRecord, error) {
	var records []model.TrainingRecord
	if err := r.client.Get(ctx, "/history", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Download fetches a stored training file's contents.
func (r *Router) Download(ctx context.Context, fileName string) ([]byte, error) {
	return r.client.GetBytes(ctx, "/download/"+url.PathEscape(fileName))
}

// =============================================================================
// REMOTE ENDPOINT
// =============================================================================

// SetRemoteEndpoint persists the remote inference URL. This is an
// operator choice about compute location and never touches the
// session.
func (r *Router) SetRemoteEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote endpoint %q is not an absolute URL", rawURL)
	}
	return r.settings.Set(keyRemoteEndpoint, rawURL)
}

// ResetRemoteEndpoint clears the remote inference URL, returning chat
// to the local default model.
func (r *Router) ResetRemoteEndpoint() error {
	return r.settings.Delete(keyRemoteEndpoint)
}

// SetEndpointOverride routes inference through rawURL for this process
// only. The persisted device setting is left alone, so the override
// disappears with the process instead of sticking.
func (r *Router) SetEndpointOverride(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote endpoint %q is not an absolute URL", rawURL)
	}
	r.endpointOverride = rawURL
	return nil
}

// RemoteEndpoint returns the remote inference URL in effect, if any.
// A process-local override shadows the persisted device setting.
func (r *Router) RemoteEndpoint() (string, bool) {
	if r.endpointOverride != "" {
		return r.endpointOverride, true
	}
	v, ok := r.settings.Get(keyRemoteEndpoint)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
