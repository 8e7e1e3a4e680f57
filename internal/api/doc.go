// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for communicating with the
// mali-chat backend.
//
// The client is the single path for every outbound request: it injects
// the bearer credential, classifies failures, and resolves the two
// global failure classes (session expired, backend unreachable) to a
// forced logout so callers never handle those themselves. All other
// failures surface as *APIError for the calling screen to present.
package api
