// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// BACKEND WIRE TYPES
// =============================================================================

// ChatReply is the backend's answer to a chat or voice-chat request.
type ChatReply struct {
	Reply          string `json:"reply"`
	AudioURL       string `json:"audio_url,omitempty"`
	AnimationState string `json:"animation_state,omitempty"` // "idle" or "talking"
	Transcription  string `json:"transcription,omitempty"`   // for voice input
	ModelSource    string `json:"model_source,omitempty"`
}

// TrainingScope selects the memory partition a taught item lands in.
type TrainingScope string

const (
	// ScopeSelf keeps taught content private to the calling account.
	ScopeSelf TrainingScope = "self"

	// ScopeGlobal shares taught content with every account. Writes to
	// the global partition require the admin role, enforced server-side.
	ScopeGlobal TrainingScope = "global"
)

// TrainingRecord is one row of the training history surface.
type TrainingRecord struct {
	Filename  string        `json:"filename"`
	Timestamp time.Time     `json:"timestamp"`
	Status    string        `json:"status"`
	Scope     TrainingScope `json:"scope,omitempty"`
}

// AccountInfo is one row of the administrative user listing.
type AccountInfo struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	Nickname string      `json:"nickname"`
	Role     AccountRole `json:"role"`
	IsActive bool        `json:"is_active"`
}
