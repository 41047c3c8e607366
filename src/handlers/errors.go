package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/smepulse/backend/src/jobs"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/security/validation"
	"github.com/username/smepulse/backend/src/services"
	"github.com/username/smepulse/backend/src/utils"
)

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrNoAnalysis):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, validation.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrExtractionInProgress):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendServiceError logs err and writes it with the mapped status. Internal
// errors are not echoed to the client.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorFromContext(r.Context(), "Request failed", "action", action, "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "internal server error", status)
		return
	}
	logger.WarnFromContext(r.Context(), "Request rejected", "action", action, "path", r.URL.Path, "status", status, "error", err)
	utils.SendJSONError(w, err.Error(), status)
}

// parseIDParam reads a positive int64 route parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
