// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

// Package memory implements auth.UserStore in process memory. It backs
// the test suites and the development mode of the server; it honors the
// full store contract, including ambiguity detection.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatekey/gatekey/internal/auth"
)

// Store is a mutex-guarded in-memory user store. The mutex provides the
// per-record update atomicity the service relies on.
type Store struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// New creates an empty Store.
func New() *Store {
	return &Store{users: make(map[string]*auth.User)}
}

// Create inserts a new user record with a fresh ULID identifier.
func (s *Store) Create(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	if email == "" || hashedPassword == "" {
		return nil, oops.Code("STORE_INVALID_INPUT").
			Wrapf(auth.ErrInvalidInput, "email and hashed password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the unique index the relational schema carries.
	for _, user := range s.users {
		if user.Email == email {
			return nil, oops.Code("USER_ALREADY_EXISTS").
				With("email", email).
				Wrap(auth.ErrAlreadyExists)
		}
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:             ulid.Make().String(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[user.ID] = user

	return copyUser(user), nil
}

// FindOneBy returns the single record matching the lookup.
func (s *Store) FindOneBy(ctx context.Context, lookup auth.Lookup) (*auth.User, error) {
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *auth.User
	for _, user := range s.users {
		value, present := fieldValue(user, lookup.Field)
		if !present || value != lookup.Value {
			continue
		}
		if found != nil {
			return nil, oops.Code("USER_AMBIGUOUS").
				With("field", string(lookup.Field)).
				Wrap(auth.ErrAmbiguous)
		}
		found = user
	}
	if found == nil {
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(lookup.Field)).
			Wrap(auth.ErrNotFound)
	}
	return copyUser(found), nil
}

// Update applies all changes to the record under one lock acquisition.
func (s *Store) Update(ctx context.Context, id string, changes ...auth.Change) error {
	for _, change := range changes {
		if err := change.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}

	for _, change := range changes {
		applyChange(user, change)
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// fieldValue returns a record's value for the given field and whether the
// field is present. Optional token fields are absent while nil.
func fieldValue(user *auth.User, field auth.Field) (string, bool) {
	switch field {
	case auth.FieldID:
		return user.ID, true
	case auth.FieldEmail:
		return user.Email, true
	case auth.FieldHashedPassword:
		return user.HashedPassword, true
	case auth.FieldSessionID:
		if user.SessionID == nil {
			return "", false
		}
		return *user.SessionID, true
	case auth.FieldResetToken:
		if user.ResetToken == nil {
			return "", false
		}
		return *user.ResetToken, true
	}
	return "", false
}

func applyChange(user *auth.User, change auth.Change) {
	switch change.Field {
	case auth.FieldEmail:
		if change.Value != nil {
			user.Email = *change.Value
		}
	case auth.FieldHashedPassword:
		if change.Value != nil {
			user.HashedPassword = *change.Value
		}
	case auth.FieldSessionID:
		user.SessionID = copyValue(change.Value)
	case auth.FieldResetToken:
		user.ResetToken = copyValue(change.Value)
	}
}

// copyUser returns a detached copy so callers cannot mutate stored state.
func copyUser(user *auth.User) *auth.User {
	c := *user
	c.SessionID = copyValue(user.SessionID)
	c.ResetToken = copyValue(user.ResetToken)
	return &c
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Compile-time interface check.
var _ auth.UserStore = (*Store)(nil)
