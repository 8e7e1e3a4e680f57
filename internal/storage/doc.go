// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence used by the
// mali-chat client for the session, the transcript, and device
// settings.
//
// The Store interface is injected into the components that need
// persistence so the core stays testable without a real environment.
// Three adapters are provided:
//
//   - MemoryStore: process-lifetime only; the analog of tab-scoped
//     session storage, and the adapter used in tests.
//   - FileStore: a JSON file written atomically on every mutation.
//   - SQLiteStore: a single key-value table in a SQLite database,
//     used for device-scoped settings that outlive the session.
package storage
