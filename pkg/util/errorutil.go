package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Messages rendered in the "message" field of error responses.
const (
	MessageUnauthorized   = "Unauthorized"
	MessageForbidden      = "Forbidden"
	MessageConflict       = "Conflict"
	MessageBadRequest     = "Bad Request"
	MessageTooManyRequest = "Too Many Requests"
	MessageInternal       = "Internal server error. Please contact the developer."
	MessageRouteNotFound  = "Route not found. Please contact the developer."
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	Reason     string
	HTTPStatus int
	RetryAfter time.Duration
	Err        error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Body returns the JSON response payload: {"message": ..., "reason"?: ...}.
func (e *DomainError) Body() map[string]any {
	body := map[string]any{"message": e.Message}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}
	return body
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message, reason string, status int) *DomainError {
	return &DomainError{Code: code, Message: message, Reason: reason, HTTPStatus: status}
}

func NewValidationError(reason string) error {
	return NewDomainError("VALIDATION_FAILED", MessageBadRequest, reason, http.StatusBadRequest)
}

// NewNotFound reports a missing resource. The message keeps the login
// contract of answering unknown accounts as unauthorized.
func NewNotFound(reason string) error {
	return NewDomainError("NOT_FOUND", MessageUnauthorized, reason, http.StatusNotFound)
}

func NewRouteNotFound() error {
	return NewDomainError("ROUTE_NOT_FOUND", MessageRouteNotFound, "", http.StatusNotFound)
}

func NewUnauthorized(reason string) error {
	return NewDomainError("UNAUTHORIZED", MessageUnauthorized, reason, http.StatusUnauthorized)
}

func NewForbidden(reason string) error {
	return NewDomainError("FORBIDDEN", MessageForbidden, reason, http.StatusForbidden)
}

func NewConflict(reason string) error {
	return NewDomainError("CONFLICT", MessageConflict, reason, http.StatusConflict)
}

func NewTooManyRequests(retryAfter time.Duration) error {
	return &DomainError{
		Code:       "RATE_LIMITED",
		Message:    MessageTooManyRequest,
		Reason:     "Rate limit exceeded.",
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    MessageInternal,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Anything that is not
// already a DomainError collapses to an internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}
