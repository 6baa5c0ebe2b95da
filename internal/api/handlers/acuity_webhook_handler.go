package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

const maxWebhookBodyBytes = 64 << 10

// AppointmentFinder looks up booked appointments
type AppointmentFinder interface {
	FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error)
}

// AcuityWebhookHandler turns Acuity appointment notifications into cache invalidations
type AcuityWebhookHandler struct {
	appointments AppointmentFinder
	verifier     providers.WebhookVerifier
	invalidator  Invalidator
}

// NewAcuityWebhookHandler creates a new webhook handler
func NewAcuityWebhookHandler(appointments AppointmentFinder, verifier providers.WebhookVerifier, invalidator Invalidator) *AcuityWebhookHandler {
	return &AcuityWebhookHandler{
		appointments: appointments,
		verifier:     verifier,
		invalidator:  invalidator,
	}
}

// HandleWebhook handles POST /webhooks/acuity.
//
// Acuity posts a form with action, id, calendarID and appointmentTypeID, signed
// over the raw body.
func (h *AcuityWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifier.VerifyRequestSignature(body, r.Header.Get(acuity.SignatureHeader)) {
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Rejected Acuity webhook with invalid signature")
		respondWithError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	action := form.Get("action")
	switch action {
	case "scheduled", "rescheduled", "canceled", "changed":
	default:
		logger.Debug().Str("action", action).Msg("Ignoring Acuity webhook action")
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	appointmentID, err := strconv.ParseInt(form.Get("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	appointment, err := h.appointments.FindAppointment(ctx, appointmentID)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	date, loc, err := appointment.Date()
	if err != nil {
		logger.Error().Err(err).Int64("appointment_id", appointmentID).Msg("Appointment has an unknown time zone")
		respondWithError(w, http.StatusUnprocessableEntity, "appointment has an unknown time zone")
		return
	}

	if err := h.invalidator.Invalidate(ctx, date, loc, "acuity:"+action); err != nil {
		logger.Error().Err(err).Int64("appointment_id", appointmentID).Msg("Failed to invalidate availability")
		respondWithError(w, http.StatusInternalServerError, "failed to invalidate availability")
		return
	}

	logger.Info().
		Str("action", action).
		Int64("appointment_id", appointmentID).
		Str("calendar_id", form.Get("calendarID")).
		Str("appointment_type_id", form.Get("appointmentTypeID")).
		Str("date", date.String()).
		Msg("Processed Acuity webhook")

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "processed",
		"date":   date.String(),
	})
}
