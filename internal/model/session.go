// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// ACCOUNT ROLE
// =============================================================================

// AccountRole is the role carried by an authenticated account.
type AccountRole string

const (
	RoleMember AccountRole = "user"
	RoleAdmin  AccountRole = "admin"
)

// Valid reports whether the role is one of the two enumerated values.
func (r AccountRole) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// String returns the string representation of the role.
func (r AccountRole) String() string {
	return string(r)
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the authenticated identity held by the client for the
// current login. A non-nil Session always has a non-empty Token.
type Session struct {
	Nickname string      `json:"nickname"`
	Role     AccountRole `json:"role"`
	Token    string      `json:"token"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Valid reports whether the session satisfies its invariants: a
// non-empty token and an enumerated role.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.Role.Valid()
}
