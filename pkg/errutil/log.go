// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

// Package errutil provides error logging and test helpers for oops
// errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string. Extra key/value pairs
// are appended to the record.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, extra ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
		attrs = append(attrs, extra...)
		logger.ErrorContext(ctx, msg, attrs...)
	} else {
		attrs := append([]any{"error", err}, extra...)
		logger.ErrorContext(ctx, msg, attrs...)
	}
}
