package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"extportal/internal/domain"
	"extportal/internal/httputil"
)

// HandleError maps domain errors onto HTTP responses. Typed errors
// carry their own status via the HTTPError interface; sentinels are
// matched with errors.Is; anything else is a 500 with the detail kept
// out of the response.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		httputil.RespondErrorWithExtras(w, conflict.StatusCode(), conflict.Message, map[string]interface{}{
			"resource_type": conflict.ResourceType,
			"resource_id":   conflict.ResourceID,
		})
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnavailable):
		logger.Error("remote store unavailable", "error", err)
		httputil.RespondError(w, http.StatusServiceUnavailable, "upstream store unavailable")
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
