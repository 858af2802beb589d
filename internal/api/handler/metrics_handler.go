package handler

import (
	"net/http"
)

// MetricsHandler serves a JSON snapshot of the most recent run.
// Raw Prometheus metrics are available separately at /metrics.
type MetricsHandler struct {
	runs Dispatcher
}

func NewMetricsHandler(runs Dispatcher) *MetricsHandler {
	return &MetricsHandler{runs: runs}
}

// LastRun handles GET /api/v1/runs/last
//
// @Summary  Summary of the most recent dispatch run
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  domain.RunReport
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/runs/last [get]
func (h *MetricsHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	report := h.runs.LastRun()
	if report == nil {
		respondError(w, http.StatusNotFound, "no run has completed since startup")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
