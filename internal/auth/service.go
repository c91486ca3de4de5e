// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides the authentication and session lifecycle operations.
// It is stateless between calls: the only state it holds is the store
// handle and its collaborators, acquired once at construction.
type Service struct {
	store  UserStore
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a Service. Both dependencies are required.
func NewService(store UserStore, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(store, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger. The
// logger only ever receives non-secret identifiers (emails, record IDs);
// tokens and password hashes are never logged.
func NewServiceWithLogger(store UserStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{store: store, hasher: hasher, logger: logger}, nil
}

// Register creates a new account. Registration is strictly create-once:
// an email that already has a record fails with ErrAlreadyExists, never
// an update of the existing record.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		recordOp("register", outcomeInvalidInput)
		return nil, oops.Code("AUTH_INVALID_INPUT").
			Wrapf(ErrInvalidInput, "email and password are required")
	}

	_, err := s.store.FindOneBy(ctx, ByEmail(email))
	if err == nil {
		recordOp("register", outcomeConflict)
		return nil, oops.Code("AUTH_ALREADY_EXISTS").
			With("email", email).
			Wrap(ErrAlreadyExists)
	}
	if !errors.Is(err, ErrNotFound) {
		recordOp("register", outcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		recordOp("register", outcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.store.Create(ctx, email, hash)
	if err != nil {
		recordOp("register", outcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	recordOp("register", outcomeOK)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ValidateLogin reports whether the credentials identify a registered
// user. Unknown email and wrong password are indistinguishable to the
// caller; the operation has no side effects.
func (s *Service) ValidateLogin(ctx context.Context, email, password string) bool {
	user, err := s.store.FindOneBy(ctx, ByEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "login validation store lookup failed", "email", email)
		}
		recordOp("validate_login", outcomeDenied)
		return false
	}

	ok, err := s.hasher.Verify(password, user.HashedPassword)
	if err != nil || !ok {
		recordOp("validate_login", outcomeDenied)
		return false
	}

	recordOp("validate_login", outcomeOK)
	return true
}

// CreateSession issues a fresh session token for the user with the given
// email and stores it on the record. Issuing a new token implicitly
// supersedes any previous one: only the stored value resolves.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.store.FindOneBy(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOp("create_session", outcomeNotFound)
			return "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		recordOp("create_session", outcomeError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := NewToken()
	if err != nil {
		recordOp("create_session", outcomeError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.store.Update(ctx, user.ID, Set(FieldSessionID, token)); err != nil {
		recordOp("create_session", outcomeError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session token").
			With("user_id", user.ID).
			Wrap(err)
	}

	recordOp("create_session", outcomeOK)
	s.logger.InfoContext(ctx, "session created", "user_id", user.ID, "email", user.Email)
	return token, nil
}

// ResolveSession returns the email of the user holding the session token.
// An empty token fails with ErrNotFound without querying the store: it
// must never match a record whose session field happens to be absent.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		recordOp("resolve_session", outcomeNotFound)
		return "", oops.Code("SESSION_NOT_FOUND").
			Wrapf(ErrNotFound, "empty session token")
	}

	user, err := s.store.FindOneBy(ctx, BySessionID(sessionID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOp("resolve_session", outcomeNotFound)
			return "", oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
		}
		recordOp("resolve_session", outcomeError)
		return "", oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "find user by session token").
			Wrap(err)
	}

	recordOp("resolve_session", outcomeOK)
	return user.Email, nil
}

// EndSession revokes the session of the user with the given record ID by
// clearing the session field. Revoking for an unknown user is a no-op,
// not an error: revocation is idempotent.
func (s *Service) EndSession(ctx context.Context, userID string) error {
	user, err := s.store.FindOneBy(ctx, ByID(userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOp("end_session", outcomeOK)
			return nil
		}
		recordOp("end_session", outcomeError)
		return oops.Code("SESSION_END_FAILED").
			With("operation", "find user by id").
			With("user_id", userID).
			Wrap(err)
	}

	if err := s.store.Update(ctx, user.ID, Clear(FieldSessionID)); err != nil {
		// The record vanishing between lookup and update still counts as
		// an already-revoked session.
		if errors.Is(err, ErrNotFound) {
			recordOp("end_session", outcomeOK)
			return nil
		}
		recordOp("end_session", outcomeError)
		return oops.Code("SESSION_END_FAILED").
			With("operation", "clear session token").
			With("user_id", user.ID).
			Wrap(err)
	}

	recordOp("end_session", outcomeOK)
	s.logger.InfoContext(ctx, "session ended", "user_id", user.ID)
	return nil
}

// EndSessionByToken revokes the session identified by the token itself.
// Unknown and empty tokens are no-ops, matching EndSession's idempotent
// contract. This is the composition a transport front end needs for a
// logout request carrying only the token.
func (s *Service) EndSessionByToken(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	user, err := s.store.FindOneBy(ctx, BySessionID(sessionID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_END_FAILED").
			With("operation", "find user by session token").
			Wrap(err)
	}
	return s.EndSession(ctx, user.ID)
}

// IssueResetToken starts a password-reset exchange for the given email
// and returns the fresh token. Unlike login validation this surfaces
// ErrNotFound for unknown emails: the caller needs to know there is no
// account to reset. The existence leak is a deliberate, documented
// trade-off of the reset flow.
func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.store.FindOneBy(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOp("issue_reset_token", outcomeNotFound)
			return "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		recordOp("issue_reset_token", outcomeError)
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := NewToken()
	if err != nil {
		recordOp("issue_reset_token", outcomeError)
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.store.Update(ctx, user.ID, Set(FieldResetToken, token)); err != nil {
		recordOp("issue_reset_token", outcomeError)
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "store reset token").
			With("user_id", user.ID).
			Wrap(err)
	}

	recordOp("issue_reset_token", outcomeOK)
	s.logger.InfoContext(ctx, "reset token issued", "user_id", user.ID, "email", user.Email)
	return token, nil
}

// ConsumeResetToken exchanges a pending reset token for a new password.
// The new hash is stored and the token cleared in one atomic update, so
// the token is single-use by construction: a second call with the same
// value fails ErrInvalidToken because the field no longer matches.
// Whether a token is empty, unknown, or already consumed is never
// revealed to the caller.
func (s *Service) ConsumeResetToken(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		recordOp("consume_reset_token", outcomeInvalidToken)
		return oops.Code("RESET_TOKEN_INVALID").
			Wrapf(ErrInvalidToken, "empty reset token")
	}
	if newPassword == "" {
		recordOp("consume_reset_token", outcomeInvalidInput)
		return oops.Code("AUTH_INVALID_INPUT").
			Wrapf(ErrInvalidInput, "new password is required")
	}

	user, err := s.store.FindOneBy(ctx, ByResetToken(resetToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOp("consume_reset_token", outcomeInvalidToken)
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		recordOp("consume_reset_token", outcomeError)
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		recordOp("consume_reset_token", outcomeError)
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			With("user_id", user.ID).
			Wrap(err)
	}

	if err := s.store.Update(ctx, user.ID,
		Set(FieldHashedPassword, hash),
		Clear(FieldResetToken),
	); err != nil {
		recordOp("consume_reset_token", outcomeError)
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "update password and clear reset token").
			With("user_id", user.ID).
			Wrap(err)
	}

	recordOp("consume_reset_token", outcomeOK)
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID, "email", user.Email)
	return nil
}
