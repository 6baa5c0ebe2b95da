package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

// ReconcileOutcome describes what reconciling one appointment type did.
type ReconcileOutcome string

const (
	ReconcileInserted  ReconcileOutcome = "inserted"
	ReconcileUpdated   ReconcileOutcome = "updated"
	ReconcileUnchanged ReconcileOutcome = "unchanged"
)

// AppointmentTypeReconciler mirrors vendor appointment types into local storage,
// writing only when something changed.
type AppointmentTypeReconciler struct {
	repo    repositories.AppointmentTypeRepository
	newID   func() string
	metrics *observability.SyncMetrics
}

// NewAppointmentTypeReconciler creates a new reconciler
func NewAppointmentTypeReconciler(repo repositories.AppointmentTypeRepository, metrics *observability.SyncMetrics) *AppointmentTypeReconciler {
	return &AppointmentTypeReconciler{
		repo:    repo,
		newID:   uuid.NewString,
		metrics: metrics,
	}
}

// Reconcile inserts vendor when it has no local record and updates the local
// record when name, description, duration or the deleted flag differ. Blank
// names and descriptions compare equal to absent ones.
func (r *AppointmentTypeReconciler) Reconcile(ctx context.Context, vendor entities.VendorAppointmentType) (ReconcileOutcome, error) {
	existing, err := r.repo.FindByAcuityID(ctx, vendor.ID)
	if apperrors.IsNotFound(err) {
		created := &entities.AppointmentType{
			AppointmentTypeID:       r.newID(),
			SchedulingSystemID:      entities.SchedulingSystemAcuity,
			AcuityAppointmentTypeID: vendor.ID,
			Name:                    entities.TrimToNil(vendor.Name),
			Description:             entities.TrimToNil(vendor.Description),
			DurationInMinutes:       vendor.Duration,
			Deleted:                 !vendor.Active,
		}
		if err := r.repo.Create(ctx, created); err != nil {
			return "", fmt.Errorf("create appointment type %d: %w", vendor.ID, err)
		}
		r.metrics.RecordAppointmentTypeWrite(ctx, string(ReconcileInserted))
		return ReconcileInserted, nil
	}
	if err != nil {
		return "", fmt.Errorf("find appointment type %d: %w", vendor.ID, err)
	}

	name := entities.TrimToNil(vendor.Name)
	description := entities.TrimToNil(vendor.Description)
	deleted := !vendor.Active

	if sameText(existing.Name, name) &&
		sameText(existing.Description, description) &&
		existing.DurationInMinutes == vendor.Duration &&
		existing.Deleted == deleted {
		return ReconcileUnchanged, nil
	}

	updated := *existing
	updated.Name = name
	updated.Description = description
	updated.DurationInMinutes = vendor.Duration
	updated.Deleted = deleted
	if err := r.repo.Update(ctx, &updated); err != nil {
		return "", fmt.Errorf("update appointment type %d: %w", vendor.ID, err)
	}
	r.metrics.RecordAppointmentTypeWrite(ctx, string(ReconcileUpdated))
	return ReconcileUpdated, nil
}

func sameText(a, b *string) bool {
	return entities.StringValue(entities.TrimToNil(entities.StringValue(a))) ==
		entities.StringValue(entities.TrimToNil(entities.StringValue(b)))
}

// AppointmentTypeSyncTask reconciles every vendor appointment type.
type AppointmentTypeSyncTask struct {
	scheduling providers.SchedulingProvider
	reconciler *AppointmentTypeReconciler
}

// NewAppointmentTypeSyncTask creates a new appointment type sync task
func NewAppointmentTypeSyncTask(scheduling providers.SchedulingProvider, reconciler *AppointmentTypeReconciler) *AppointmentTypeSyncTask {
	return &AppointmentTypeSyncTask{scheduling: scheduling, reconciler: reconciler}
}

func (t *AppointmentTypeSyncTask) Name() string { return "appointment-type-sync" }

// Run fetches the vendor's appointment types and reconciles each one. A
// failure for one type is logged and does not stop the others.
func (t *AppointmentTypeSyncTask) Run(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "sync.appointment_types")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	vendorTypes, err := t.scheduling.FindAppointmentTypes(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("fetch appointment types: %w", err)
	}

	counts := map[ReconcileOutcome]int{}
	succeeded := 0
	for _, vendorType := range vendorTypes {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := t.reconciler.Reconcile(ctx, vendorType)
		switch {
		case err == nil:
			succeeded++
			counts[outcome]++
		case acuity.IsUndocumentedRateLimit(err):
			logger.Warn().Int64("acuity_appointment_type_id", vendorType.ID).
				Msg("Acuity undocumented rate limit reached while syncing appointment type")
		default:
			logger.Error().Err(err).Int64("acuity_appointment_type_id", vendorType.ID).
				Msg("Failed to sync appointment type")
		}
	}

	logger.Info().
		Int("succeeded", succeeded).
		Int("total", len(vendorTypes)).
		Int("inserted", counts[ReconcileInserted]).
		Int("updated", counts[ReconcileUpdated]).
		Msg("Appointment type sync complete")
	return nil
}
