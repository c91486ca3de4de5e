// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package auth

import "errors"

// Sentinel errors for the store contract and the service operations.
// Callers match them with errors.Is; the oops wrappers layered on top
// add codes and context for logging.
var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when registration hits an existing email.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned for empty or malformed required arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidField is returned when a lookup or update names a field
	// outside the record schema. This is a caller programming error, not
	// a runtime condition.
	ErrInvalidField = errors.New("invalid field")

	// ErrAmbiguous is returned when a lookup matches more than one record.
	// Uniqueness invariants make this unreachable in a healthy store; if it
	// occurs the store's integrity is corrupted.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrInvalidToken is returned when a reset token is empty, unknown, or
	// already consumed. The three cases are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid token")
)
