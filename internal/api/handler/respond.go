package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/notifyhub/weekly-dispatch/internal/dispatch"
	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// Dispatcher is the slice of the batch driver the HTTP layer uses.
type Dispatcher interface {
	RunOnce(ctx context.Context, now time.Time) (*domain.RunReport, error)
	DispatchNow(ctx context.Context, userID string) (dispatch.Report, error)
	LastRun() *domain.RunReport
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidDay),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidItemCount):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrPopulationLoad):
		respondError(w, http.StatusInternalServerError, "failed to process dispatch run")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// queryInt returns the query value as a positive int, or def.
func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}
