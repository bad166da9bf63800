package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// ErrDecode marks a 2xx answer whose body could not be decoded.
var ErrDecode = errors.New("decode response")

// UpstreamError describes a non-2xx answer from a remote API.
func UpstreamError(status int, body []byte) *AppError {
	code := "ERR_UPSTREAM"
	switch status {
	case http.StatusUnauthorized:
		code = "ERR_UNAUTHORIZED"
	case http.StatusForbidden:
		code = "ERR_FORBIDDEN"
	case http.StatusNotFound:
		code = "ERR_NOT_FOUND"
	case http.StatusTooManyRequests:
		code = "ERR_RATE_LIMITED"
	}
	msg := fmt.Sprintf("unexpected status %d", status)
	if b := strings.TrimSpace(string(body)); b != "" {
		msg += ": " + b
	}
	return NewAppError(code, "", msg, status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}
