// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package admin wraps the backend's administrative account surface:
// listing accounts, toggling activation, changing roles, and deleting
// accounts. The backend authorizes every call by the bearer token's
// role; this package only shapes the requests.
package admin
