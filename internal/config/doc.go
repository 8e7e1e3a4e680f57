// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides device-scoped configuration for the mali-chat
// client.
//
// Configuration lives in ~/.malichat/config.toml, with sensible
// defaults and environment variable overrides. Settings here describe
// the device (backend base URL, log location, audio default), not the
// identity: the authenticated session is never written to the config
// file and survives neither in it nor because of it.
package config
