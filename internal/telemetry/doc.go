// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry wires structured logging and OpenTelemetry for
// mali-chat.
//
// Logs are JSON via slog into a rotated file under the configured log
// directory; the terminal stays clean for the chat UI. Traces and
// metrics go through the OTel SDK into rotated files alongside the
// logs, so an OTel collector can still pick them up via the SDK.
//
// # Privacy
//
// Telemetry is local-only and never transmits anything. Message
// content is not recorded - only timings, counters, and error classes.
package telemetry
