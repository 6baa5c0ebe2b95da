// Package tenant carries the institution, locale and time zone a unit of work
// executes for. Background jobs have no inbound request to derive it from, so
// they attach it explicitly before running any business logic.
package tenant

import (
	"context"
	"fmt"
	"time"
)

type contextKey string

const tenantKey contextKey = "tenant"

// Context describes who a unit of work runs on behalf of.
type Context struct {
	InstitutionID string
	Locale        string
	TimeZone      *time.Location
}

// New builds a Context, resolving the IANA zone name.
func New(institutionID, locale, timeZone string) (Context, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return Context{}, fmt.Errorf("invalid tenant time zone %q: %w", timeZone, err)
	}
	return Context{
		InstitutionID: institutionID,
		Locale:        locale,
		TimeZone:      loc,
	}, nil
}

// WithContext returns a copy of ctx carrying tc.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// FromContext returns the tenant attached to ctx.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(tenantKey).(Context)
	return tc, ok
}
