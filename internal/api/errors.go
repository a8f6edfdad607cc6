package api

import (
	"errors"
	"net/http"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/model"
)

// writeServiceError maps domain sentinel errors onto HTTP status codes.
// Anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidPhoneNumber):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}
