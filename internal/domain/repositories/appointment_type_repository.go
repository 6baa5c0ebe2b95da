package repositories

import (
	"context"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// AppointmentTypeRepository defines the interface for appointment type data operations
type AppointmentTypeRepository interface {
	// FindByAcuityID returns the local record mirroring a vendor appointment type.
	// A missing record yields an ErrorTypeNotFound AppError.
	FindByAcuityID(ctx context.Context, acuityAppointmentTypeID int64) (*entities.AppointmentType, error)

	// Create inserts a new appointment type
	Create(ctx context.Context, appointmentType *entities.AppointmentType) error

	// Update overwrites the mutable fields of an existing appointment type
	Update(ctx context.Context, appointmentType *entities.AppointmentType) error

	// ListByProvider returns the non-deleted appointment types a provider offers
	ListByProvider(ctx context.Context, providerID string) ([]*entities.AppointmentType, error)
}
