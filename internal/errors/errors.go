package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates a rejected identifier/secret pair.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeTokenExpired indicates the access token is past its expiry.
	ErrCodeTokenExpired ErrorCode = "token_expired"
	// ErrCodeTokenInvalid indicates the access token was rejected by the backend.
	ErrCodeTokenInvalid ErrorCode = "token_invalid"
	// ErrCodeRefreshInvalid indicates the refresh token is expired or revoked.
	ErrCodeRefreshInvalid ErrorCode = "refresh_invalid"
	// ErrCodeBackendUnavailable indicates the content backend could not be reached.
	ErrCodeBackendUnavailable ErrorCode = "backend_unavailable"
	// ErrCodeUnauthorized indicates the caller lacks a required permission.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeMalformedResponse indicates a backend payload missing expected fields.
	ErrCodeMalformedResponse ErrorCode = "malformed_response"
	// ErrCodeRateLimited indicates too many attempts in the current window.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidCredentials creates a new invalid-credentials error.
func InvalidCredentials(message string) *AppError {
	return New(ErrCodeInvalidCredentials, message)
}

// TokenExpired creates a new token-expired error.
func TokenExpired(message string) *AppError {
	return New(ErrCodeTokenExpired, message)
}

// TokenInvalid creates a new token-invalid error.
func TokenInvalid(message string) *AppError {
	return New(ErrCodeTokenInvalid, message)
}

// RefreshInvalid creates a new refresh-invalid error.
func RefreshInvalid(message string) *AppError {
	return New(ErrCodeRefreshInvalid, message)
}

// BackendUnavailable creates a new backend-unavailable error.
func BackendUnavailable(message string) *AppError {
	return New(ErrCodeBackendUnavailable, message)
}

// Unauthorized creates a new unauthorized error.
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// MalformedResponse creates a new malformed-response error.
func MalformedResponse(message string) *AppError {
	return New(ErrCodeMalformedResponse, message)
}

// RateLimited creates a new rate-limited error.
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

// Validation creates a new validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a new validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// NotFound creates a new not-found error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Internal creates a new internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Internalf creates a new internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return Newf(ErrCodeInternal, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an invalid-credentials error.
func IsInvalidCredentials(err error) bool { return isCode(err, ErrCodeInvalidCredentials) }

// IsTokenExpired checks if an error is a token-expired error.
func IsTokenExpired(err error) bool { return isCode(err, ErrCodeTokenExpired) }

// IsTokenInvalid checks if an error is a token-invalid error.
func IsTokenInvalid(err error) bool { return isCode(err, ErrCodeTokenInvalid) }

// IsRefreshInvalid checks if an error is a refresh-invalid error.
func IsRefreshInvalid(err error) bool { return isCode(err, ErrCodeRefreshInvalid) }

// IsBackendUnavailable checks if an error is a backend-unavailable error.
func IsBackendUnavailable(err error) bool { return isCode(err, ErrCodeBackendUnavailable) }

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }

// IsMalformedResponse checks if an error is a malformed-response error.
func IsMalformedResponse(err error) bool { return isCode(err, ErrCodeMalformedResponse) }

// IsRateLimited checks if an error is a rate-limited error.
func IsRateLimited(err error) bool { return isCode(err, ErrCodeRateLimited) }

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsInternal checks if an error is an internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
