// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"contractorvet/pkg/rbac"
)

type Kind string

const (
	KindUnauthorized      Kind = "Unauthorized"
	KindForbidden         Kind = "Forbidden"
	KindValidation        Kind = "ValidationError"
	KindDuplicateReferral Kind = "DuplicateReferral"
	KindReferralNotFound  Kind = "ReferralNotFound"
	KindNotFound          Kind = "NotFound"
	KindStore             Kind = "StoreError"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func Validation(message string) *Error { return New(KindValidation, message) }

func DuplicateReferral() *Error {
	return New(KindDuplicateReferral, "a pending referral for this email already exists")
}

func ReferralNotFound() *Error {
	return New(KindReferralNotFound, "referral not found or not in a convertible state")
}

func NotFound(what string) *Error { return New(KindNotFound, what+" not found") }

// Store wraps a data-store failure, keeping the underlying message.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: op + " failed", Err: err}
}

// KindOf returns the kind of err; unclassified errors are store errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var denied *rbac.PermissionDeniedError
	if errors.As(err, &denied) {
		return KindForbidden
	}
	var mismatch *rbac.UserIDMismatchError
	if errors.As(err, &mismatch) {
		return KindForbidden
	}
	return KindStore
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateReferral:
		return http.StatusConflict
	case KindReferralNotFound, KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
