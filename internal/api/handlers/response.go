package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithUpstreamError maps scheduling vendor failures onto HTTP statuses
func respondWithUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	var (
		parseErr     *acuity.ParseError
		transportErr *acuity.TransportError
	)
	switch {
	case acuity.IsNotFound(err), apperrors.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, "not found")
	case acuity.IsNotAvailable(err):
		respondWithError(w, http.StatusConflict, "requested time is not available")
	case acuity.IsUndocumentedRateLimit(err):
		logger.Warn().Msg("Acuity undocumented rate limit reached while serving request")
		respondWithError(w, http.StatusServiceUnavailable, "scheduling system is throttling requests, try again later")
	case errors.As(err, &parseErr):
		logger.Error().Err(err).Msg("Acuity returned an unreadable response")
		respondWithError(w, http.StatusBadGateway, "scheduling system returned an invalid response")
	case errors.As(err, &transportErr):
		logger.Error().Err(err).Msg("Acuity is unreachable")
		respondWithError(w, http.StatusBadGateway, "scheduling system is unreachable")
	default:
		var schedulingErr *acuity.SchedulingError
		if errors.As(err, &schedulingErr) {
			logger.Error().Err(err).Int("status", schedulingErr.StatusCode).Msg("Acuity request failed")
			respondWithError(w, http.StatusBadGateway, "scheduling system request failed")
			return
		}
		logger.Error().Err(err).Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseInt64Param(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

// parseLocation resolves an IANA zone name, defaulting to fallback when empty
func parseLocation(name string, fallback *time.Location) (*time.Location, error) {
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.New("unknown time zone " + strconv.Quote(name))
	}
	return loc, nil
}
