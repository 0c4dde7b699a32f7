package httpx

import (
	"errors"
	"net/http"

	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCode), errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrCSRFTokenMissing),
		errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to a failure envelope.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := shared.UserSafeMessage(err)
	if status == http.StatusInternalServerError && !errors.Is(err, shared.ErrDataInconsistency) {
		message = "internal server error"
	}
	Fail(w, status, message)
}
