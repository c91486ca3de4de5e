// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Redaction replaces the value of every sensitive field in log output.
const Redaction = "***"

// SensitiveFields are attribute keys whose values must never appear in
// logs. Messages are also scrubbed for key=value occurrences of these.
var SensitiveFields = []string{
	"password",
	"new_password",
	"hashed_password",
	"session_id",
	"reset_token",
}

var messagePattern = regexp.MustCompile(
	`(?i)\b(` + strings.Join(SensitiveFields, "|") + `)=([^;,\s]*)`,
)

// FilterMessage obfuscates key=value occurrences of sensitive fields in
// a free-form message.
func FilterMessage(message string) string {
	return messagePattern.ReplaceAllString(message, "${1}="+Redaction)
}

// redactHandler masks sensitive attribute values and scrubs messages
// before forwarding records to the wrapped handler.
type redactHandler struct {
	handler slog.Handler
}

// Handle rewrites the record with sensitive values masked.
func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, FilterMessage(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, clean)
}

// Enabled returns true if the level is enabled.
func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs masks the attached attributes before binding them, so values
// added via Logger.With are covered too.
func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &redactHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a new handler with the given group.
func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks the attribute value when its key is sensitive,
// recursing into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		clean := make([]slog.Attr, len(members))
		for i, m := range members {
			clean[i] = redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}
	for _, field := range SensitiveFields {
		if strings.EqualFold(a.Key, field) {
			return slog.String(a.Key, Redaction)
		}
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, FilterMessage(a.Value.String()))
	}
	if a.Value.Kind() == slog.KindAny {
		return slog.String(a.Key, FilterMessage(fmt.Sprintf("%v", a.Value.Any())))
	}
	return a
}
