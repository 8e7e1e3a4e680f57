// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Sentinel errors for the failure classes the client distinguishes.
var (
	// ErrInvalidCredentials is returned for a 401 from the login
	// endpoint, where no credential was attached. It does NOT trigger
	// a forced logout.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned for a 401 on any authenticated
	// call. It is resolved centrally: session and transcript are torn
	// down and navigation returns to login.
	ErrSessionExpired = errors.New("session expired")

	// ErrBackendUnreachable is returned when the backend does not
	// answer at all, or answers 502/503/504. Resolved centrally like
	// ErrSessionExpired, after a blocking notice.
	ErrBackendUnreachable = errors.New("backend unreachable")
)

// APIError is any other non-2xx response, rethrown unchanged for the
// caller to handle locally.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// IsValidation reports whether the error is a 422 validation failure.
func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity
}

// IsConflict reports whether the error is a 409 conflict, e.g. a
// registration against an already-taken identifier.
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict
}

// IsUnreachable reports whether err is the backend-unreachable class.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrBackendUnreachable)
}

// IsAuthFailure reports whether err is either authentication failure
// class (bad login or expired session).
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrSessionExpired)
}

// unreachableStatus reports whether a status code counts as the
// backend being unreachable (gateway layer answered for a dead
// service).
func unreachableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
