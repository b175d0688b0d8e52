package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure. Handlers map it to an HTTP status.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindInvalidID
	KindUnauthenticated
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidID:
		return "invalid_id"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// APIError is a failure with a message safe to show to the caller.
type APIError struct {
	Kind    ErrorKind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewValidationError(msg string) *APIError {
	return &APIError{Kind: KindValidation, Message: msg}
}

func NewInvalidIDError(resource string) *APIError {
	return &APIError{Kind: KindInvalidID, Message: "Invalid " + resource + " ID"}
}

func NewUnauthenticatedError(msg string) *APIError {
	return &APIError{Kind: KindUnauthenticated, Message: msg}
}

func NewForbiddenError(msg string) *APIError {
	return &APIError{Kind: KindForbidden, Message: msg}
}

func NewNotFoundError(msg string) *APIError {
	return &APIError{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) *APIError {
	return &APIError{Kind: KindConflict, Message: msg}
}

func NewInternalError(msg string) *APIError {
	return &APIError{Kind: KindInternal, Message: msg}
}

// AsAPIError unwraps err into an *APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
