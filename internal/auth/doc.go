// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

// Package auth implements the identity and session lifecycle service.
//
// # Domain Types
//
// A single persistent entity, User, carries the login key (email), the
// password hash, and two optional secret tokens: the session identifier
// and the password-reset token. Each token field holds at most one value
// per user at a time; both are globally unique while present.
//
// # Record Store
//
// UserStore is the narrow persistence contract the service is built on:
// create, find-one-by-lookup, and update-by-id. Lookups and updates name
// record fields through the closed Field enumeration; anything outside
// that set fails with ErrInvalidField before touching storage. See the
// postgres and memory subpackages for implementations.
//
// # Service
//
// Service owns all business rules: uniqueness on registration, credential
// verification, session issue/resolve/revoke, and the single-use
// password-reset exchange. It holds no mutable state of its own; all
// state lives behind UserStore.
package auth
