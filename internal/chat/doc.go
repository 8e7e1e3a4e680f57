// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat maintains the session-scoped transcript and routes
// intelligence and memory operations to the correct backend target.
//
// Hybrid architecture: every request goes to the local backend, which
// owns files, history, and persona (memory). When the operator has
// configured a remote inference endpoint, that URL rides along in the
// chat request so the local backend can delegate the "thinking" while
// keeping memory authoritative locally.
package chat
