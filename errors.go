package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError captures structured error metadata returned by the dashboard API.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	apiErr := APIError{Status: resp.StatusCode}
	if len(data) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}
	var payload struct {
		Message   string `json:"message"`
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = string(data)
		return apiErr
	}
	apiErr.Message = payload.Message
	if apiErr.Message == "" {
		apiErr.Message = payload.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	apiErr.RequestID = payload.RequestID
	return apiErr
}

// ErrorCode represents client-side error categories.
type ErrorCode string

const (
	// ErrCodeValidation is a local input failure; no network call was made.
	ErrCodeValidation ErrorCode = "validation_failed"
	// ErrCodeInvalidCredentials is a rejected login (400/401).
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeRateLimited is a throttled login (429).
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeDecodeFailed is a credential that could not be parsed into claims.
	ErrCodeDecodeFailed ErrorCode = "decode_failed"
	// ErrCodeRefreshExhausted is a refresh that was rejected by the server.
	ErrCodeRefreshExhausted ErrorCode = "refresh_exhausted"
	// ErrCodeConnection is a transport-level failure (unreachable, timeout).
	ErrCodeConnection ErrorCode = "connection_error"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeValidation:         "Missing or invalid fields",
	ErrCodeInvalidCredentials: "Invalid credentials",
	ErrCodeRateLimited:        "Too many attempts, wait before retrying",
	ErrCodeDecodeFailed:       "Received an unreadable credential",
	ErrCodeRefreshExhausted:   "Session expired",
	ErrCodeConnection:         "Connection error",
}

// Error wraps client-side failures with a stable code and a user-facing
// message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the client error code from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
