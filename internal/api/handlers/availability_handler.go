package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/zatekoja/providersync/internal/adapters/cache"
	"github.com/zatekoja/providersync/internal/domain/entities"
)

// AvailabilityReader serves availability, normally through the read-through cache
type AvailabilityReader interface {
	FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error)
	FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error)
	Keys() cache.CacheKeys
}

// Invalidator drops cached availability on every instance
type Invalidator interface {
	Invalidate(ctx context.Context, date entities.LocalDate, loc *time.Location, reason string) error
	InvalidateAll()
}

// AvailabilityHandler handles availability and cache endpoints
type AvailabilityHandler struct {
	reader      AvailabilityReader
	invalidator Invalidator
	defaultZone *time.Location
}

// NewAvailabilityHandler creates a new availability handler. Requests without
// a timeZone parameter use defaultZone.
func NewAvailabilityHandler(reader AvailabilityReader, invalidator Invalidator, defaultZone *time.Location) *AvailabilityHandler {
	return &AvailabilityHandler{
		reader:      reader,
		invalidator: invalidator,
		defaultZone: defaultZone,
	}
}

// GetTimes handles GET /api/availability/times
func (h *AvailabilityHandler) GetTimes(w http.ResponseWriter, r *http.Request) {
	calendarID, err := parseInt64Param(r, "calendarId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	appointmentTypeID, err := parseInt64Param(r, "appointmentTypeId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := entities.ParseLocalDate(r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}
	loc, err := parseLocation(r.URL.Query().Get("timeZone"), h.defaultZone)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	times, err := h.reader.FindAvailabilityTimes(r.Context(), calendarID, appointmentTypeID, date, loc)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date":      date,
		"time_zone": loc.String(),
		"times":     times,
	})
}

// GetClasses handles GET /api/availability/classes
func (h *AvailabilityHandler) GetClasses(w http.ResponseWriter, r *http.Request) {
	month, err := entities.ParseYearMonth(r.URL.Query().Get("month"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "month must be formatted as YYYY-MM")
		return
	}
	loc, err := parseLocation(r.URL.Query().Get("timeZone"), h.defaultZone)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	classes, err := h.reader.FindAvailabilityClasses(r.Context(), month, loc)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"month":     month.String(),
		"time_zone": loc.String(),
		"classes":   classes,
	})
}

// InvalidateRequest is the body of POST /api/availability/invalidate
type InvalidateRequest struct {
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
	Reason   string `json:"reason"`
}

// Invalidate handles POST /api/availability/invalidate
func (h *AvailabilityHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := entities.ParseLocalDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}
	loc, err := parseLocation(req.TimeZone, h.defaultZone)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}

	if err := h.invalidator.Invalidate(r.Context(), date, loc, reason); err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"date":      date.String(),
		"time_zone": loc.String(),
	})
}

// ClearCache handles DELETE /api/availability/cache
func (h *AvailabilityHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.invalidator.InvalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

// GetCacheKeys handles GET /api/availability/cache/keys
func (h *AvailabilityHandler) GetCacheKeys(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.reader.Keys())
}
