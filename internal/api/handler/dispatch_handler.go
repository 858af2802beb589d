package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/weekly-dispatch/internal/api/middleware"
	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// TriggerResponse is the body of a successful cron trigger.
type TriggerResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	RunID     string            `json:"runId"`
	Summary   domain.RunSummary `json:"summary"`
	Timestamp time.Time         `json:"timestamp"`
}

// DispatchHandler exposes the batch run and the single-user dispatch.
type DispatchHandler struct {
	runs   Dispatcher
	clock  func() time.Time
	logger *zap.Logger
}

func NewDispatchHandler(runs Dispatcher, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{runs: runs, clock: time.Now, logger: logger}
}

// Trigger handles POST /api/v1/cron/dispatch
//
// The run is detached from the caller's connection: a scheduler that gives
// up waiting must not abort users that are already mid-pipeline. The run
// timeout still bounds it.
//
// @Summary  Run one weekly dispatch pass
// @Tags     dispatch
// @Produce  json
// @Param    Authorization  header    string  true  "Bearer <CRON_SECRET>"
// @Success  200            {object}  TriggerResponse
// @Failure  401            {object}  map[string]string
// @Failure  500            {object}  map[string]string
// @Router   /api/v1/cron/dispatch [post]
func (h *DispatchHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	log := apimw.Logger(r.Context(), h.logger)
	now := h.clock()

	report, err := h.runs.RunOnce(context.WithoutCancel(r.Context()), now)
	if err != nil {
		log.Error("dispatch run failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to process dispatch run")
		return
	}

	respondJSON(w, http.StatusOK, TriggerResponse{
		Success:   true,
		Message:   "Weekly dispatch run completed",
		RunID:     report.RunID,
		Summary:   report.Summary,
		Timestamp: report.CompletedAt,
	})
}

// DispatchNow handles POST /api/v1/users/{id}/dispatch
//
// @Summary  Generate and deliver for one user immediately
// @Tags     dispatch
// @Produce  json
// @Param    id   path      string  true  "User ID"
// @Success  200  {object}  dispatch.Report
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/users/{id}/dispatch [post]
func (h *DispatchHandler) DispatchNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.runs.DispatchNow(r.Context(), id)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("manual dispatch failed", zap.String("user_id", id), zap.Error(err))
		mapError(w, err)
		return
	}

	body := map[string]any{
		"userId":  rep.UserID,
		"result":  rep.Result,
		"outcome": rep.Outcome,
	}
	if rep.Err != nil {
		body["error"] = rep.Err.Error()
	}
	respondJSON(w, http.StatusOK, body)
}
