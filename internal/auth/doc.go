// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the authenticated-user session and its lifecycle.
//
// The Store is the single source of truth for "who is logged in":
// every other component reads the session through Current, Token, or a
// subscription, and only login, logout, and the forced teardown ever
// write it. Session state persists in session-scoped storage so a
// process restart within the same "tab" restores it without a network
// call; an expired or forged token is only discovered on the first
// authenticated request.
package auth
