// Package google implements the OAuth2 authorization-code flow with PKCE for
// Google models. It covers token persistence, the one-shot local callback
// server, silent refresh, and the interactive login orchestration.
package google

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuthError represents an error returned by the OAuth provider itself,
// either on the callback URL or in a token endpoint response body.
type OAuthError struct {
	// Code is the OAuth error code, for example "access_denied".
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// StatusCode is the HTTP status code associated with the error.
	StatusCode int `json:"-"`
}

// Error returns a string representation of the OAuth error.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("OAuth error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("OAuth error: %s", e.Code)
}

// NewOAuthError creates a new OAuth error with the specified code, description, and status code.
func NewOAuthError(code, description string, statusCode int) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		StatusCode:  statusCode,
	}
}

// AuthenticationError represents a failure in the interactive login or
// refresh flow, classified by Type for user-facing handling.
type AuthenticationError struct {
	// Type is the type of authentication error.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// Code is the HTTP status code or process exit code associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error that caused this authentication error.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Common authentication error types.
var (
	// ErrInvalidState represents an error for an OAuth state parameter that
	// does not match the one sent, aborting the flow before token exchange.
	ErrInvalidState = &AuthenticationError{
		Type:    "invalid_state",
		Message: "OAuth state parameter is invalid",
		Code:    http.StatusBadRequest,
	}

	// ErrCodeExchangeFailed represents an error when exchanging the authorization code for tokens fails.
	ErrCodeExchangeFailed = &AuthenticationError{
		Type:    "code_exchange_failed",
		Message: "Failed to exchange authorization code for tokens",
		Code:    http.StatusBadRequest,
	}

	// ErrRefreshFailed represents an error when refreshing the access token fails.
	ErrRefreshFailed = &AuthenticationError{
		Type:    "refresh_failed",
		Message: "Failed to refresh access token",
		Code:    http.StatusUnauthorized,
	}

	// ErrServerStartFailed represents an error when starting the OAuth callback server fails.
	ErrServerStartFailed = &AuthenticationError{
		Type:    "server_start_failed",
		Message: "Failed to start OAuth callback server",
		Code:    http.StatusInternalServerError,
	}

	// ErrPortInUse represents an error when the OAuth callback port is already in use.
	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "OAuth callback port is already in use",
		Code:    13, // Special exit code for port-in-use
	}

	// ErrCallbackTimeout represents an error when waiting for the OAuth callback times out.
	ErrCallbackTimeout = &AuthenticationError{
		Type:    "callback_timeout",
		Message: "Timeout waiting for OAuth callback",
		Code:    http.StatusRequestTimeout,
	}
)

// NewAuthenticationError creates a new authentication error with a cause based on a base error.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsOAuthError checks if an error is an OAuth provider error.
func IsOAuthError(err error) bool {
	var oAuthError *OAuthError
	return errors.As(err, &oAuthError)
}

// PersistenceError represents a token file I/O failure.
type PersistenceError struct {
	// Op names the failed operation, for example "save" or "clear".
	Op string
	// Path is the token file path involved.
	Path string
	// Cause is the underlying error.
	Cause error
}

// Error returns a string representation of the persistence error.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("token store %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	switch {
	case IsAuthenticationError(err):
		var authErr *AuthenticationError
		errors.As(err, &authErr)
		switch authErr.Type {
		case "invalid_state":
			return "Authentication was rejected for security reasons. Please try again."
		case "port_in_use":
			return "The OAuth callback port is already in use. Please close the application using it or pass a different port."
		case "callback_timeout":
			return "Authentication timed out. Please try again."
		case "refresh_failed":
			return "Your authentication has expired and could not be refreshed. Please log in again."
		default:
			return "Authentication failed. Please try again."
		}
	case IsOAuthError(err):
		var oauthErr *OAuthError
		errors.As(err, &oauthErr)
		switch oauthErr.Code {
		case "access_denied":
			return "Authentication was cancelled or denied."
		case "invalid_request":
			return "Invalid authentication request. Please try again."
		case "server_error":
			return "Authentication server error. Please try again later."
		default:
			return fmt.Sprintf("Authentication failed: %s", oauthErr.Code)
		}
	default:
		return "An unexpected error occurred. Please try again."
	}
}
