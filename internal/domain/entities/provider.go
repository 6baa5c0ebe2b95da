package entities

import (
	"fmt"
	"time"
)

// SchedulingSystem identifies where a provider's calendar is managed
type SchedulingSystem string

const (
	SchedulingSystemAcuity SchedulingSystem = "ACUITY"
	SchedulingSystemCobalt SchedulingSystem = "COBALT"
)

// Provider is a clinician whose availability is mirrored from the scheduling vendor
type Provider struct {
	ProviderID         string           `json:"provider_id" db:"provider_id"`
	InstitutionID      string           `json:"institution_id" db:"institution_id"`
	Name               string           `json:"name" db:"name"`
	SchedulingSystemID SchedulingSystem `json:"scheduling_system_id" db:"scheduling_system_id"`
	AcuityCalendarID   int64            `json:"acuity_calendar_id" db:"acuity_calendar_id"`
	TimeZone           string           `json:"time_zone" db:"time_zone"`
	Active             bool             `json:"active" db:"active"`
}

// Location resolves the provider's configured IANA time zone
func (p *Provider) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("provider %s has invalid time zone %q: %w", p.ProviderID, p.TimeZone, err)
	}
	return loc, nil
}
