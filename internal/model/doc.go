// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the mali-chat
// client: the authenticated session, transcript messages, and the wire
// types reported by the backend.
package model
