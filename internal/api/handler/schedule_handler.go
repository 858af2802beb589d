package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/weekly-dispatch/internal/api/middleware"
	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/service"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 100
)

// ScheduleHandler handles the per-user settings and history endpoints.
type ScheduleHandler struct {
	svc    *service.ScheduleService
	logger *zap.Logger
}

func NewScheduleHandler(svc *service.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

// GetSchedule handles GET /api/v1/users/{id}/schedule
//
// @Summary  Get a user's weekly schedule
// @Tags     schedule
// @Produce  json
// @Param    id   path      string  true  "User ID"
// @Success  200  {object}  domain.Schedule
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/users/{id}/schedule [get]
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u.Schedule)
}

// PutSchedule handles PUT /api/v1/users/{id}/schedule
//
// @Summary  Replace a user's weekly schedule
// @Tags     schedule
// @Accept   json
// @Produce  json
// @Param    id    path      string                        true  "User ID"
// @Param    body  body      domain.UpdateScheduleRequest  true  "Schedule"
// @Success  200   {object}  domain.Schedule
// @Failure  404   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/users/{id}/schedule [put]
func (h *ScheduleHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	u, err := h.svc.UpdateSchedule(r.Context(), id, req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("update schedule failed", zap.String("user_id", id), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u.Schedule)
}

// ListOutcomes handles GET /api/v1/users/{id}/outcomes
//
// @Summary  A user's dispatch history, newest first
// @Tags     schedule
// @Produce  json
// @Param    id     path      string  true   "User ID"
// @Param    page   query     int     false  "Page number (default 1)"
// @Param    limit  query     int     false  "Items per page (default 5, max 100)"
// @Success  200    {object}  map[string]any
// @Failure  404    {object}  map[string]string
// @Router   /api/v1/users/{id}/outcomes [get]
func (h *ScheduleHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := min(queryInt(r, "limit", defaultHistoryLimit), maxHistoryLimit)

	outcomes, total, err := h.svc.History(r.Context(), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		mapError(w, err)
		return
	}
	if outcomes == nil {
		outcomes = []*domain.Outcome{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  outcomes,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
