// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

// Package postgres implements auth.UserStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatekey/gatekey/internal/auth"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// satisfies it, which keeps the unit tests database-free.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool Pool) *UserStore {
	return &UserStore{pool: pool}
}

// userColumns is the select list shared by every lookup.
const userColumns = "id, email, hashed_password, session_id, reset_token, created_at, updated_at"

// Create inserts a new user record with a fresh ULID identifier.
func (s *UserStore) Create(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	if email == "" || hashedPassword == "" {
		return nil, oops.Code("STORE_INVALID_INPUT").
			Wrapf(auth.ErrInvalidInput, "email and hashed password are required")
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:             ulid.Make().String(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// The service pre-checks uniqueness; the index is the backstop
			// against concurrent registration of the same email.
			return nil, oops.Code("USER_ALREADY_EXISTS").
				With("email", email).
				Wrap(auth.ErrAlreadyExists)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// FindOneBy returns the single record matching the lookup. The query asks
// for up to two rows so a uniqueness violation surfaces as ErrAmbiguous
// instead of silently picking a record.
func (s *UserStore) FindOneBy(ctx context.Context, lookup auth.Lookup) (*auth.User, error) {
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	// lookup.Field is validated against the closed field set above, so
	// interpolating it as a column name is safe.
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s = $1 LIMIT 2", userColumns, lookup.Field)

	rows, err := s.pool.Query(ctx, query, lookup.Value)
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "query users").
			With("field", string(lookup.Field)).
			Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "iterate users").
			With("field", string(lookup.Field)).
			Wrap(err)
	}

	switch len(users) {
	case 0:
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(lookup.Field)).
			Wrap(auth.ErrNotFound)
	case 1:
		return users[0], nil
	default:
		return nil, oops.Code("USER_AMBIGUOUS").
			With("field", string(lookup.Field)).
			Wrap(auth.ErrAmbiguous)
	}
}

// Update applies all changes in a single UPDATE statement. Duplicate
// fields follow last-wins semantics; updated_at always advances.
func (s *UserStore) Update(ctx context.Context, id string, changes ...auth.Change) error {
	merged := make(map[auth.Field]*string, len(changes))
	for _, change := range changes {
		if err := change.Validate(); err != nil {
			return err
		}
		merged[change.Field] = change.Value
	}

	// Deterministic column order keeps the statement stable for tests
	// and query plans.
	assignments := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	for _, field := range []auth.Field{auth.FieldEmail, auth.FieldHashedPassword, auth.FieldSessionID, auth.FieldResetToken} {
		value, ok := merged[field]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", field, len(args)))
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $1", strings.Join(assignments, ", "))

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
func scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.SessionID,
		&user.ResetToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
