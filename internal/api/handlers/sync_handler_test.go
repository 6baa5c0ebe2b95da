package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/providersync/internal/api/handlers"
	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/internal/domain/providers"
)

func TestSyncHandler_StartStop(t *testing.T) {
	scheduler := new(MockScheduler)
	handler := handlers.NewSyncHandler(scheduler, &MockTelemetry{})

	scheduler.On("Start").Return(true).Once()
	scheduler.On("Start").Return(false).Once()
	scheduler.On("Stop").Return(true).Once()

	w := httptest.NewRecorder()
	handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sync/start", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"started":true}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sync/start", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"started":false}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.Stop(w, httptest.NewRequest(http.MethodPost, "/api/sync/stop", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	scheduler.AssertExpectations(t)
}

func TestSyncHandler_Status(t *testing.T) {
	scheduler := new(MockScheduler)
	handler := handlers.NewSyncHandler(scheduler, &MockTelemetry{})
	scheduler.On("Status").Return(services.SchedulerStatus{
		Started: true,
		Jobs:    []services.JobStatus{{Name: "availability-sync", Runs: 3}},
	})

	w := httptest.NewRecorder()
	handler.GetStatus(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"started":true,"jobs":[{"name":"availability-sync","running":false,"runs":3,"failures":0}]}`, w.Body.String())
}

func TestSyncHandler_Histogram(t *testing.T) {
	handler := handlers.NewSyncHandler(new(MockScheduler), &MockTelemetry{buckets: []providers.CallHistogramBucket{
		{Label: "2020-04-20 09:00:02", Count: 3},
		{Label: "2020-04-20 09:00:01", Count: 5},
	}})

	w := httptest.NewRecorder()
	handler.GetHistogram(w, httptest.NewRequest(http.MethodGet, "/api/sync/histogram", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"buckets": [
			{"label":"2020-04-20 09:00:02","count":3},
			{"label":"2020-04-20 09:00:01","count":5}
		],
		"total_calls": 8
	}`, w.Body.String())
}
