// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package web

// registerRequest is the POST /users payload.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerResponse confirms account creation.
type registerResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// loginRequest is the POST /sessions payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse confirms login; the session token travels in a cookie.
type loginResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// profileResponse is the GET /profile body.
type profileResponse struct {
	Email string `json:"email"`
}

// resetRequestBody is the POST /reset_password payload.
type resetRequestBody struct {
	Email string `json:"email"`
}

// resetTokenResponse returns the issued password reset token.
type resetTokenResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// updatePasswordRequest is the PUT /reset_password payload.
type updatePasswordRequest struct {
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// updatePasswordResponse confirms the password change.
type updatePasswordResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}
