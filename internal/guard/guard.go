// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"github.com/nontawat9304/mali-chat/internal/model"
)

// Well-known navigation targets.
const (
	// LoginPath is where unauthenticated navigation lands.
	LoginPath = "/login"

	// DefaultPath is the default authenticated screen, where denied
	// role-gated navigation lands.
	DefaultPath = "/chat"
)

// =============================================================================
// ROUTE METADATA
// =============================================================================

// Route describes a navigation target and its admission requirements.
type Route struct {
	// Path is the requested navigation target.
	Path string

	// RequiredRole gates the route to one account role. Empty means
	// any authenticated user may enter.
	RequiredRole model.AccountRole
}

// =============================================================================
// DECISION
// =============================================================================

// Action is the guard's verdict.
type Action int

const (
	// Allow admits the navigation.
	Allow Action = iota

	// RedirectLogin sends the user to login, carrying the originally
	// requested path so navigation can resume afterwards.
	RedirectLogin

	// RedirectDefault denies a role-gated route by sending the user to
	// the default authenticated screen. A deny, not an error.
	RedirectDefault
)

// Decision is the guard's full answer for one navigation attempt.
type Decision struct {
	Action     Action
	RedirectTo string

	// ReturnURL is set for RedirectLogin so the login screen can
	// resume the original navigation.
	ReturnURL string
}

// Check decides admission for one navigation attempt. Pure: no side
// effects, no caching.
func Check(session *model.Session, route Route) Decision {
	if session == nil {
		return Decision{
			Action:     RedirectLogin,
			RedirectTo: LoginPath,
			ReturnURL:  route.Path,
		}
	}

	if route.RequiredRole != "" && session.Role != route.RequiredRole {
		return Decision{
			Action:     RedirectDefault,
			RedirectTo: DefaultPath,
		}
	}

	return Decision{Action: Allow}
}
