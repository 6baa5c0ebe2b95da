package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/providersync/internal/adapters/cache"
	"github.com/zatekoja/providersync/internal/adapters/database"
	"github.com/zatekoja/providersync/internal/adapters/events"
	"github.com/zatekoja/providersync/internal/adapters/providers/scheduling"
	"github.com/zatekoja/providersync/internal/api/handlers"
	"github.com/zatekoja/providersync/internal/api/routes"
	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/redis"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/config"
	"github.com/zatekoja/providersync/pkg/secrets"
	"github.com/zatekoja/providersync/pkg/tenant"
)

func main() {
	vaultCtx, vaultCancel := context.WithTimeout(context.Background(), 30*time.Second)
	vaultResult, err := secrets.ApplyVaultSecrets(vaultCtx, secrets.LoadVaultConfigFromEnv())
	vaultCancel()
	if err != nil {
		log.Fatal().Err(err).Str("path", vaultResult.Path).Msg("Failed to load secrets from Vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Logging.Environment, cfg.Logging.Level)
	if vaultResult.Enabled {
		log.Info().
			Str("path", vaultResult.Path).
			Strs("loaded", vaultResult.Loaded).
			Strs("skipped", vaultResult.Skipped).
			Msg("Loaded secrets from Vault")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("Failed to shut down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	tc, err := tenant.New(cfg.Tenant.InstitutionID, cfg.Tenant.Locale, cfg.Tenant.TimeZone)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tenant configuration")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pgClient.Close()
	log.Info().Str("host", cfg.Database.Host).Msg("Connected to PostgreSQL")

	var bus providers.InvalidationBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cache invalidations will stay local to this instance")
		} else {
			defer redisClient.Close()
			redisBus := events.NewRedisInvalidationBus(redisClient)
			defer redisBus.Close()
			bus = redisBus
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Connected to Redis")
		}
	}

	schedulingProvider, err := scheduling.NewSchedulingProvider(scheduling.SchedulingProviderConfig{
		Acuity:  cfg.Acuity,
		Sync:    cfg.Sync,
		Metrics: metrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduling provider")
	}

	availabilityCache, err := cache.NewAvailabilityCache(schedulingProvider, cfg.Sync, cache.WithMetrics(metrics))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create availability cache")
	}

	providerRepo := database.NewProviderAdapter(pgClient)
	appointmentTypeRepo := database.NewAppointmentTypeAdapter(pgClient)
	availabilityRepo := database.NewAvailabilityAdapter(pgClient)

	availabilityTask := services.NewAvailabilitySyncTask(services.AvailabilitySyncTaskConfig{
		Providers:        providerRepo,
		AppointmentTypes: appointmentTypeRepo,
		Scheduling:       schedulingProvider,
		Writer:           services.NewAvailabilityWriter(availabilityRepo, nil),
		LookaheadDays:    cfg.Sync.LookaheadDays,
		Metrics:          metrics,
	})
	appointmentTypeTask := services.NewAppointmentTypeSyncTask(
		schedulingProvider,
		services.NewAppointmentTypeReconciler(appointmentTypeRepo, metrics),
	)

	scheduler := services.NewSyncScheduler(tc, cfg.Sync.ShutdownTimeout, metrics,
		services.DefaultSchedules(cfg.Sync, availabilityTask, appointmentTypeTask)...)

	invalidationService := services.NewCacheInvalidationService(availabilityCache, bus)
	if err := invalidationService.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start cache invalidation service")
	}
	defer invalidationService.Stop()

	router := routes.NewRouter(
		handlers.NewAvailabilityHandler(availabilityCache, invalidationService, tc.TimeZone),
		handlers.NewSyncHandler(scheduler, schedulingProvider),
		handlers.NewAcuityWebhookHandler(schedulingProvider, schedulingProvider, invalidationService),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	if cfg.Sync.AutoStart {
		scheduler.Start()
	} else {
		log.Info().Msg("Sync autostart disabled, start jobs with POST /api/sync/start")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
