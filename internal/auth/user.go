// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// User represents a single account record. ID is assigned by the store at
// creation and never changes. SessionID and ResetToken are nil while no
// session or reset exchange is active.
type User struct {
	ID             string
	Email          string
	HashedPassword string
	SessionID      *string
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Field names a column of the user record. The set is closed: lookups and
// updates naming anything else fail with ErrInvalidField.
type Field string

// The complete record schema.
const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

// Known reports whether f belongs to the record schema.
func (f Field) Known() bool {
	switch f {
	case FieldID, FieldEmail, FieldHashedPassword, FieldSessionID, FieldResetToken:
		return true
	}
	return false
}

// Mutable reports whether f may appear in an update. ID is immutable.
func (f Field) Mutable() bool {
	return f.Known() && f != FieldID
}

// Lookup selects exactly one record by a single field value. Construct
// lookups with ByID, ByEmail, BySessionID, or ByResetToken; the zero value
// is invalid.
type Lookup struct {
	Field Field
	Value string
}

// ByID selects a record by its store-assigned identifier.
func ByID(id string) Lookup { return Lookup{Field: FieldID, Value: id} }

// ByEmail selects a record by its login email.
func ByEmail(email string) Lookup { return Lookup{Field: FieldEmail, Value: email} }

// BySessionID selects a record by its active session token.
func BySessionID(token string) Lookup { return Lookup{Field: FieldSessionID, Value: token} }

// ByResetToken selects a record by its pending reset token.
func ByResetToken(token string) Lookup { return Lookup{Field: FieldResetToken, Value: token} }

// Validate checks that the lookup names a known field.
func (l Lookup) Validate() error {
	if !l.Field.Known() {
		return oops.Code("STORE_INVALID_FIELD").
			With("field", string(l.Field)).
			Wrap(ErrInvalidField)
	}
	return nil
}

// Change sets or clears a single mutable field. A nil Value clears the
// field to absent.
type Change struct {
	Field Field
	Value *string
}

// Set returns a Change that assigns value to field.
func Set(field Field, value string) Change {
	return Change{Field: field, Value: &value}
}

// Clear returns a Change that makes field absent.
func Clear(field Field) Change {
	return Change{Field: field}
}

// Validate checks that the change targets a known, mutable field.
func (c Change) Validate() error {
	if !c.Field.Mutable() {
		return oops.Code("STORE_INVALID_FIELD").
			With("field", string(c.Field)).
			Wrap(ErrInvalidField)
	}
	return nil
}

// UserStore is the persistence boundary for user records. Implementations
// own durability and per-record update atomicity; they enforce no business
// rules beyond field-name validity and record existence.
type UserStore interface {
	// Create inserts a new record and returns it with its assigned ID.
	// Fails with ErrInvalidInput when either argument is empty.
	Create(ctx context.Context, email, hashedPassword string) (*User, error)

	// FindOneBy returns the single record matching the lookup. Fails with
	// ErrInvalidField for an unknown field, ErrNotFound for zero matches,
	// and ErrAmbiguous when more than one record matches.
	FindOneBy(ctx context.Context, lookup Lookup) (*User, error)

	// Update applies all changes to the record with the given id as one
	// atomic write. Fails with ErrNotFound when the record does not exist
	// and ErrInvalidField when a change names an unknown or immutable
	// field; on failure no change is applied.
	Update(ctx context.Context, id string, changes ...Change) error
}
