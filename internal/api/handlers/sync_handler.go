package handlers

import (
	"net/http"

	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/internal/domain/providers"
)

// SchedulerControl starts and stops the background sync jobs
type SchedulerControl interface {
	Start() bool
	Stop() bool
	Status() services.SchedulerStatus
}

// SyncHandler exposes scheduler control and vendor call telemetry
type SyncHandler struct {
	scheduler SchedulerControl
	telemetry providers.CallTelemetry
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(scheduler SchedulerControl, telemetry providers.CallTelemetry) *SyncHandler {
	return &SyncHandler{scheduler: scheduler, telemetry: telemetry}
}

// GetStatus handles GET /api/sync/status
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.scheduler.Status())
}

// Start handles POST /api/sync/start
func (h *SyncHandler) Start(w http.ResponseWriter, r *http.Request) {
	started := h.scheduler.Start()
	status := http.StatusOK
	if !started {
		status = http.StatusConflict
	}
	respondWithJSON(w, status, map[string]bool{"started": started})
}

// Stop handles POST /api/sync/stop
func (h *SyncHandler) Stop(w http.ResponseWriter, r *http.Request) {
	stopped := h.scheduler.Stop()
	status := http.StatusOK
	if !stopped {
		status = http.StatusConflict
	}
	respondWithJSON(w, status, map[string]bool{"stopped": stopped})
}

// GetHistogram handles GET /api/sync/histogram. Buckets are most recent first.
func (h *SyncHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	buckets := h.telemetry.CallFrequencyHistogram()
	var total int64
	for _, bucket := range buckets {
		total += bucket.Count
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"buckets":     buckets,
		"total_calls": total,
	})
}
