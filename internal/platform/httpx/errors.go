package httpx

import (
	"errors"
	"net/http"

	"github.com/vidora-app/vidora/internal/shared"
)

// RespondError maps domain errors to the error envelope. All handler errors
// funnel through here so status codes stay consistent across endpoints.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrUpload):
		Error(w, http.StatusBadRequest, shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConflict):
		Error(w, http.StatusConflict, shared.UserSafeMessage(err))
	default:
		Error(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}
