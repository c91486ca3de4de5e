// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatekey/gatekey/internal/auth"
	"github.com/gatekey/gatekey/internal/auth/memory"
	"github.com/gatekey/gatekey/pkg/errutil"
)

// stubStore is a hand-rolled UserStore whose behavior is set per test.
type stubStore struct {
	createFn func(ctx context.Context, email, hashedPassword string) (*auth.User, error)
	findFn   func(ctx context.Context, lookup auth.Lookup) (*auth.User, error)
	updateFn func(ctx context.Context, id string, changes ...auth.Change) error
}

func (s *stubStore) Create(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	if s.createFn == nil {
		panic("unexpected Create call")
	}
	return s.createFn(ctx, email, hashedPassword)
}

func (s *stubStore) FindOneBy(ctx context.Context, lookup auth.Lookup) (*auth.User, error) {
	if s.findFn == nil {
		panic("unexpected FindOneBy call")
	}
	return s.findFn(ctx, lookup)
}

func (s *stubStore) Update(ctx context.Context, id string, changes ...auth.Change) error {
	if s.updateFn == nil {
		panic("unexpected Update call")
	}
	return s.updateFn(ctx, id, changes...)
}

// stubHasher hashes deterministically so tests can assert what reached
// the store.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "hashed:" + password, nil
}

func (stubHasher) Verify(password, hash string) (bool, error) {
	return hash == "hashed:"+password, nil
}

func notFound(_ context.Context, _ auth.Lookup) (*auth.User, error) {
	return nil, auth.ErrNotFound
}

func newService(t *testing.T, store auth.UserStore) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(store, stubHasher{})
	require.NoError(t, err)
	return svc
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		store       auth.UserStore
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil store",
			store:       nil,
			hasher:      stubHasher{},
			expectError: "user store is required",
		},
		{
			name:        "nil hasher",
			store:       &stubStore{},
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.store, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewServiceWithLogger_NilLogger(t *testing.T) {
	svc, err := auth.NewServiceWithLogger(&stubStore{}, stubHasher{}, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with hashed password", func(t *testing.T) {
		var gotEmail, gotHash string
		store := &stubStore{
			findFn: notFound,
			createFn: func(_ context.Context, email, hashedPassword string) (*auth.User, error) {
				gotEmail, gotHash = email, hashedPassword
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: email, HashedPassword: hashedPassword}, nil
			},
		}
		svc := newService(t, store)

		user, err := svc.Register(ctx, "user@example.com", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", user.Email)
		assert.Equal(t, "user@example.com", gotEmail)
		assert.Equal(t, "hashed:hunter2", gotHash, "the plaintext password must never reach the store")
	})

	t.Run("duplicate email fails with conflict", func(t *testing.T) {
		store := &stubStore{
			findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: lookup.Value}, nil
			},
		}
		svc := newService(t, store)

		user, err := svc.Register(ctx, "user@example.com", "hunter2")
		require.Error(t, err)
		assert.Nil(t, user)
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "AUTH_ALREADY_EXISTS")
	})

	t.Run("empty inputs rejected", func(t *testing.T) {
		svc := newService(t, &stubStore{})

		for _, args := range [][2]string{{"", "hunter2"}, {"user@example.com", ""}, {"", ""}} {
			user, err := svc.Register(ctx, args[0], args[1])
			require.Error(t, err)
			assert.Nil(t, user)
			require.ErrorIs(t, err, auth.ErrInvalidInput)
		}
	})

	t.Run("store failure surfaces as register failure", func(t *testing.T) {
		store := &stubStore{
			findFn: func(_ context.Context, _ auth.Lookup) (*auth.User, error) {
				return nil, auth.ErrAmbiguous
			},
		}
		svc := newService(t, store)

		_, err := svc.Register(ctx, "user@example.com", "hunter2")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})
}

func TestService_ValidateLogin(t *testing.T) {
	ctx := context.Background()

	user := &auth.User{
		ID:             "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Email:          "user@example.com",
		HashedPassword: "hashed:hunter2",
	}
	store := &stubStore{
		findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
			if lookup.Field == auth.FieldEmail && lookup.Value == user.Email {
				u := *user
				return &u, nil
			}
			return nil, auth.ErrNotFound
		},
	}
	svc := newService(t, store)

	assert.True(t, svc.ValidateLogin(ctx, "user@example.com", "hunter2"))
	assert.False(t, svc.ValidateLogin(ctx, "user@example.com", "wrongpassword"))
	assert.False(t, svc.ValidateLogin(ctx, "unknown@example.com", "hunter2"))
	assert.False(t, svc.ValidateLogin(ctx, "", ""))
}

func TestService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and returns a fresh token", func(t *testing.T) {
		var storedID string
		var storedChanges []auth.Change
		store := &stubStore{
			findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: lookup.Value}, nil
			},
			updateFn: func(_ context.Context, id string, changes ...auth.Change) error {
				storedID = id
				storedChanges = changes
				return nil
			},
		}
		svc := newService(t, store)

		token, err := svc.CreateSession(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Len(t, token, auth.TokenBytes*2)

		assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", storedID)
		require.Len(t, storedChanges, 1)
		assert.Equal(t, auth.FieldSessionID, storedChanges[0].Field)
		require.NotNil(t, storedChanges[0].Value)
		assert.Equal(t, token, *storedChanges[0].Value)
	})

	t.Run("unknown email fails", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})

		token, err := svc.CreateSession(ctx, "unknown@example.com")
		require.Error(t, err)
		assert.Empty(t, token)
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
	})
}

func TestService_ResolveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the holder's email", func(t *testing.T) {
		token := "a1b2c3"
		store := &stubStore{
			findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
				require.Equal(t, auth.FieldSessionID, lookup.Field)
				if lookup.Value == token {
					return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: "user@example.com", SessionID: &token}, nil
				}
				return nil, auth.ErrNotFound
			},
		}
		svc := newService(t, store)

		email, err := svc.ResolveSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", email)
	})

	t.Run("empty token never queries the store", func(t *testing.T) {
		// stubStore panics on any unexpected call
		svc := newService(t, &stubStore{})

		email, err := svc.ResolveSession(ctx, "")
		require.Error(t, err)
		assert.Empty(t, email)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("unknown token fails", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})

		_, err := svc.ResolveSession(ctx, "stale-token")
		require.Error(t, err)
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})
}

func TestService_EndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the session field", func(t *testing.T) {
		var storedChanges []auth.Change
		token := "a1b2c3"
		store := &stubStore{
			findFn: func(_ context.Context, _ auth.Lookup) (*auth.User, error) {
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: "user@example.com", SessionID: &token}, nil
			},
			updateFn: func(_ context.Context, _ string, changes ...auth.Change) error {
				storedChanges = changes
				return nil
			},
		}
		svc := newService(t, store)

		require.NoError(t, svc.EndSession(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"))
		require.Len(t, storedChanges, 1)
		assert.Equal(t, auth.FieldSessionID, storedChanges[0].Field)
		assert.Nil(t, storedChanges[0].Value, "clearing, not setting")
	})

	t.Run("unknown user is a no-op", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})
		require.NoError(t, svc.EndSession(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"))
	})

	t.Run("record vanishing mid-flight is a no-op", func(t *testing.T) {
		store := &stubStore{
			findFn: func(_ context.Context, _ auth.Lookup) (*auth.User, error) {
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV"}, nil
			},
			updateFn: func(_ context.Context, _ string, _ ...auth.Change) error {
				return auth.ErrNotFound
			},
		}
		svc := newService(t, store)
		require.NoError(t, svc.EndSession(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"))
	})
}

func TestService_EndSessionByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token never queries the store", func(t *testing.T) {
		svc := newService(t, &stubStore{})
		require.NoError(t, svc.EndSessionByToken(ctx, ""))
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})
		require.NoError(t, svc.EndSessionByToken(ctx, "stale-token"))
	})
}

func TestService_IssueResetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and returns a fresh token", func(t *testing.T) {
		var storedChanges []auth.Change
		store := &stubStore{
			findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
				return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: lookup.Value}, nil
			},
			updateFn: func(_ context.Context, _ string, changes ...auth.Change) error {
				storedChanges = changes
				return nil
			},
		}
		svc := newService(t, store)

		token, err := svc.IssueResetToken(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Len(t, token, auth.TokenBytes*2)

		require.Len(t, storedChanges, 1)
		assert.Equal(t, auth.FieldResetToken, storedChanges[0].Field)
		require.NotNil(t, storedChanges[0].Value)
		assert.Equal(t, token, *storedChanges[0].Value)
	})

	t.Run("unknown email is reported, not hidden", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})

		token, err := svc.IssueResetToken(ctx, "unknown@example.com")
		require.Error(t, err)
		assert.Empty(t, token)
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
	})
}

func TestService_ConsumeResetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("updates password and clears token in one write", func(t *testing.T) {
		var updateCalls int
		var storedChanges []auth.Change
		token := "reset-token-1"
		store := &stubStore{
			findFn: func(_ context.Context, lookup auth.Lookup) (*auth.User, error) {
				require.Equal(t, auth.FieldResetToken, lookup.Field)
				if lookup.Value == token {
					return &auth.User{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: "user@example.com", ResetToken: &token}, nil
				}
				return nil, auth.ErrNotFound
			},
			updateFn: func(_ context.Context, _ string, changes ...auth.Change) error {
				updateCalls++
				storedChanges = changes
				return nil
			},
		}
		svc := newService(t, store)

		require.NoError(t, svc.ConsumeResetToken(ctx, token, "newpassword"))

		assert.Equal(t, 1, updateCalls, "password change and token clear must be one atomic update")
		require.Len(t, storedChanges, 2)
		assert.Equal(t, auth.FieldHashedPassword, storedChanges[0].Field)
		require.NotNil(t, storedChanges[0].Value)
		assert.Equal(t, "hashed:newpassword", *storedChanges[0].Value)
		assert.Equal(t, auth.FieldResetToken, storedChanges[1].Field)
		assert.Nil(t, storedChanges[1].Value)
	})

	t.Run("empty token rejected without store query", func(t *testing.T) {
		svc := newService(t, &stubStore{})

		err := svc.ConsumeResetToken(ctx, "", "newpassword")
		require.Error(t, err)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		svc := newService(t, &stubStore{})

		err := svc.ConsumeResetToken(ctx, "some-token", "")
		require.Error(t, err)
		require.ErrorIs(t, err, auth.ErrInvalidInput)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		svc := newService(t, &stubStore{findFn: notFound})

		err := svc.ConsumeResetToken(ctx, "unknown-token", "newpassword")
		require.Error(t, err)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
		errutil.AssertErrorCode(t, err, "RESET_TOKEN_INVALID")
	})
}

// TestService_Lifecycle exercises the full account lifecycle against the
// in-memory store with real bcrypt hashing.
func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, err := auth.NewService(store, auth.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)

	// Register and log in
	user, err := svc.Register(ctx, "user@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)

	assert.True(t, svc.ValidateLogin(ctx, "user@example.com", "hunter2"))
	assert.False(t, svc.ValidateLogin(ctx, "user@example.com", "wrongpassword"))

	// Session round trip
	first, err := svc.CreateSession(ctx, "user@example.com")
	require.NoError(t, err)

	email, err := svc.ResolveSession(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	// A new session supersedes the old one
	second, err := svc.CreateSession(ctx, "user@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = svc.ResolveSession(ctx, first)
	require.ErrorIs(t, err, auth.ErrNotFound)

	// Logout, twice: idempotent
	require.NoError(t, svc.EndSession(ctx, user.ID))
	require.NoError(t, svc.EndSession(ctx, user.ID))

	_, err = svc.ResolveSession(ctx, second)
	require.ErrorIs(t, err, auth.ErrNotFound)

	// Password reset
	resetToken, err := svc.IssueResetToken(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ConsumeResetToken(ctx, resetToken, "newpassword"))
	assert.False(t, svc.ValidateLogin(ctx, "user@example.com", "hunter2"))
	assert.True(t, svc.ValidateLogin(ctx, "user@example.com", "newpassword"))

	// The token is single-use
	err = svc.ConsumeResetToken(ctx, resetToken, "anotherpassword")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
