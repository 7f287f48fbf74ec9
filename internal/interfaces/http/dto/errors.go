package dto

import (
	"net/http"

	"github.com/orderflow/backend/internal/domain/shared"
)

// Transport error codes. Domain errors keep their own codes (INVALID_TRANSITION,
// PAYMENT_INCOMPLETE, ...) and get their status from their kind.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// StatusForKind returns the HTTP status of a domain error kind. Kinds
// without a mapping are policy violations.
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

// StatusForError returns the HTTP status and code for err. Anything that is
// not a DomainError is an internal error.
func StatusForError(err error) (int, string) {
	if domainErr, ok := shared.AsDomainError(err); ok {
		return StatusForKind(domainErr.Kind), domainErr.Code
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
