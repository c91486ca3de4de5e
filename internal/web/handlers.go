// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

// Package web exposes the authentication service over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gatekey/gatekey/internal/auth"
	"github.com/gatekey/gatekey/internal/observability"
	"github.com/gatekey/gatekey/pkg/errutil"
)

// SessionCookie is the name of the session token cookie.
const SessionCookie = "session_id"

// Handlers wires the authentication service to HTTP endpoints.
type Handlers struct {
	service *auth.Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHandlers creates the HTTP handler set. logger defaults to
// slog.Default(); metrics may be nil to disable request metrics.
func NewHandlers(service *auth.Service, logger *slog.Logger, metrics *observability.Metrics) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger, metrics: metrics}
}

// Router builds the HTTP route table.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/users", h.handleRegister)
	r.Post("/sessions", h.handleLogin)
	r.Delete("/sessions", h.handleLogout)
	r.Get("/profile", h.handleProfile)
	r.Post("/reset_password", h.handleResetToken)
	r.Put("/reset_password", h.handleUpdatePassword)

	return r
}

// handleRegister creates a new account.
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Email:   user.Email,
		Message: "user created",
	})
}

// handleLogin validates credentials and opens a session. The session
// token is returned only as an HttpOnly cookie.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !h.service.ValidateLogin(r.Context(), req.Email, req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	sessionID, err := h.service.CreateSession(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Email:   req.Email,
		Message: "logged in",
	})
}

// handleLogout ends the session named by the cookie. Logout is
// idempotent: a missing or stale cookie still yields 204.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if endErr := h.service.EndSessionByToken(r.Context(), cookie.Value); endErr != nil {
			h.writeError(w, r, endErr)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleProfile resolves the session cookie to the account email.
func (h *Handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "no active session"})
		return
	}

	email, err := h.service.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "no active session"})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Email: email})
}

// handleResetToken issues a password reset token. An unknown email is
// reported as 404; callers deploying this endpoint publicly should rate
// limit it, since the response discloses account existence.
func (h *Handlers) handleResetToken(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.IssueResetToken(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resetTokenResponse{
		Email:      req.Email,
		ResetToken: token,
	})
}

// handleUpdatePassword consumes a reset token and sets a new password.
func (h *Handlers) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ConsumeResetToken(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid reset token"})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updatePasswordResponse{
		Email:   req.Email,
		Message: "password updated",
	})
}

// decode parses the JSON request body, answering 400 on malformed input.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close() //nolint:errcheck // read-side close
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes and logs server
// faults.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrInvalidField):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input"})
	case errors.Is(err, auth.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid reset token"})
	default:
		errutil.LogError(r.Context(), h.logger, "request failed", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// writeJSON serializes data with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

// requestLogger logs each request with its status and duration, and
// records request metrics when configured.
func (h *Handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		h.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
		if h.metrics != nil {
			h.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			h.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
	})
}
