package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/grants"
	"github.com/knowflow/permd/internal/roles"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unknown permission and role codes are caller mistakes (4xx); anything
// unrecognised is treated as a storage or collaborator failure (5xx)
// with no automatic retry.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownPermission):
		Problem(w, http.StatusBadRequest, "Unknown Permission", err.Error())
	case errors.Is(err, roles.ErrUnknownRole):
		Problem(w, http.StatusBadRequest, "Unknown Role", err.Error())
	case errors.Is(err, grants.ErrInvalidScope):
		Problem(w, http.StatusBadRequest, "Invalid Scope", err.Error())
	case errors.Is(err, grants.ErrConflict):
		Problem(w, http.StatusConflict, "Grant Conflict", err.Error())
	case errors.Is(err, grants.ErrNotFound):
		Problem(w, http.StatusNotFound, "Grant Not Found", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusServiceUnavailable, "Request Cancelled", "")
	default:
		Problem(w, http.StatusInternalServerError, "Storage Unavailable", "")
	}
}
