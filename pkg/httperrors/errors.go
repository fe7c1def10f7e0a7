// Package httperrors переводит доменные ошибки в HTTP-статусы.
package httperrors

import (
	"errors"
	"net/http"

	"github.com/sir_venger/chunkload/internal/models"
)

// Status подбирает HTTP-статус для ошибки по её sentinel-причине.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrBadSignature):
		return http.StatusForbidden
	case errors.Is(err, models.ErrSessionClosed), errors.Is(err, models.ErrETagMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidPartCount),
		errors.Is(err, models.ErrInvalidPartSize),
		errors.Is(err, models.ErrReceiptsIncomplete),
		errors.Is(err, models.ErrMissingETag),
		errors.Is(err, models.ErrInvalidKey):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNoStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Write(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), Status(err))
}
