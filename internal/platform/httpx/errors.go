// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/labportal/reagent-portal/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInUse), errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrCSRFTokenMissing),
		errors.Is(err, shared.ErrCSRFTokenMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsServerError reports whether RespondError would answer with a 5xx.
func IsServerError(err error) bool {
	for _, known := range []error{
		shared.ErrNotFound,
		shared.ErrAlreadyExists,
		shared.ErrInUse,
		shared.ErrConflict,
		shared.ErrValidation,
		shared.ErrInvalidCredentials,
		shared.ErrUnauthorized,
		shared.ErrForbidden,
		shared.ErrCSRFTokenMissing,
		shared.ErrCSRFTokenMismatch,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
