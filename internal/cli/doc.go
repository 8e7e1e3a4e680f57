// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive mali-chat terminal client.
//
// The client is a REPL with three screens - login, chat, and admin -
// modeled as navigation paths. Every screen switch goes through the
// route guard, so an expired session lands back on login and a member
// asking for the admin screen lands on chat, never on login.
//
// Plain input on the chat screen is a chat message; slash commands
// reach the teaching, persona, history, and admin surfaces. Input
// history and line editing come from peterh/liner; passwords are read
// without echo via golang.org/x/term.
package cli
