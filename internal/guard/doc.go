// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard provides admission control for protected navigation
// targets.
//
// The decision is a pure function of the current session and the
// route's declared metadata. It is authoritative: screen-level role
// checks are defense-in-depth for what gets rendered, never a second
// source of truth. Callers must re-evaluate on every navigation
// attempt rather than cache a decision.
package guard
