package scheduling

import (
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/config"
)

// Provider is everything the engine needs from a scheduling vendor.
type Provider interface {
	providers.SchedulingProvider
	providers.CallTelemetry
	providers.WebhookVerifier
}

// SchedulingProviderConfig configures scheduling providers.
type SchedulingProviderConfig struct {
	Acuity  config.AcuityConfig
	Sync    config.SyncEngineConfig
	Metrics *observability.SyncMetrics
}

// NewSchedulingProvider returns the Acuity adapter when credentials are
// configured and the mock adapter otherwise.
func NewSchedulingProvider(cfg SchedulingProviderConfig) (Provider, error) {
	if !cfg.Acuity.Enabled() {
		log.Warn().Msg("Acuity credentials not configured, using mock scheduling provider")
		return NewMockAdapter(), nil
	}

	client, err := acuity.NewClient(cfg.Acuity, cfg.Sync, acuity.WithMetrics(cfg.Metrics))
	if err != nil {
		return nil, err
	}
	return NewAcuityAdapter(client), nil
}
