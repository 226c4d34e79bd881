// cmd/wizard-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"admissions-wizard/internal/api"
	"admissions-wizard/internal/catalog"
	"admissions-wizard/internal/common/camunda"
	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/database"
	"admissions-wizard/internal/common/logger"
	appmetrics "admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/common/observability"
	"admissions-wizard/internal/common/validation"
	"admissions-wizard/internal/common/zoho"
	"admissions-wizard/internal/submission"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/controller"
	"admissions-wizard/internal/wizard/coordinator"
)

const flagStoreRedis = "redis"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting wizard server...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New("wizard-server")
	if err != nil {
		zapLog.Warn("otel exporter unavailable, submissions will not be counted", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns := database.NewConnections()
	defer func() {
		if err := conns.Close(); err != nil {
			zapLog.Error("closing connections", zap.Error(err))
		}
	}()

	// --- Program catalog ---
	var programs controller.ProgramFetcher
	switch cfg.Wizard.ProgramSource {
	case config.ProgramSourceElasticsearch:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		if err := database.RetryWithBackoff(ctx, func() error { return es.Ping(ctx) },
			15, 2*time.Second, log, "Elasticsearch connection"); err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		conns.Add(es)
		programs = catalog.NewElasticsearchRepository(es.Client, cfg.Database.Elasticsearch.ProgramIndex, log)
	default:
		var pg *database.PostgresClient
		err := database.RetryWithBackoff(ctx, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		conns.Add(pg)
		programs = catalog.NewPostgresRepository(pg.DB, log)
	}

	// --- Redis: program cache and full-pass markers ---
	var flags coordinator.FlagStore = coordinator.NewMemoryFlagStore()
	cacheTTL := config.GetSeconds(cfg.Wizard.ProgramCacheTTL)
	if cacheTTL > 0 || cfg.Wizard.FlagStore == flagStoreRedis {
		rdb := database.NewRedis(cfg.Database.Redis)
		if err := database.RetryWithBackoff(ctx, func() error { return rdb.Ping(ctx) },
			10, 2*time.Second, log, "Redis connection"); err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		conns.Add(rdb)

		if cacheTTL > 0 {
			programs = catalog.NewCachedFetcher(programs, rdb.Client, cacheTTL, log)
		}
		if cfg.Wizard.FlagStore == flagStoreRedis {
			flags = coordinator.NewRedisFlagStore(rdb.Client, "wizard:fullpass:", 2*config.GetSeconds(cfg.Wizard.SessionTTL))
		}
	}

	// --- Submission: CRM lead plus admissions process ---
	var zeebe *camunda.Client
	err = database.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	conns.Add(zeebe)

	schema, err := validation.Load(validation.SubmissionSchemaName)
	if err != nil {
		zapLog.Fatal("submission schema failed to compile", zap.Error(err))
	}

	submitter := submission.NewService(submission.Config{
		ProcessID: cfg.Camunda.ProcessID,
	}, submission.Deps{
		Leads: zoho.NewCRMClient(
			cfg.Integrations.Zoho.BaseURL,
			cfg.Integrations.Zoho.AuthToken,
			config.GetDuration(cfg.Integrations.Zoho.Timeout),
		),
		Processes: zeebe,
		Schema:    schema,
		Recorder:  obs,
	}, log)

	// --- HTTP ---
	wizardMetrics := appmetrics.NewWizardMetrics(prometheus.DefaultRegisterer)

	sessions := api.NewManager(api.ManagerConfig{
		IdleTTL:                     config.GetSeconds(cfg.Wizard.SessionTTL),
		MaxUploadBytes:              cfg.Wizard.MaxUploadBytes,
		AllowDuplicateVisaCountries: cfg.Wizard.AllowDuplicateVisaCountries,
	}, api.ManagerDeps{
		FlagStore: flags,
		Recorder:  wizardMetrics,
		Active:    wizardMetrics.SessionsActive,
		IDs:       attachments.UUIDGenerator{},
	}, log)
	go sessions.Run(ctx, config.GetSeconds(cfg.Wizard.SweepInterval))

	server := api.NewServer(api.Deps{
		Sessions:  sessions,
		Programs:  programs,
		Submitter: submitter,
		Health:    conns,
		Requests:  wizardMetrics,
		Gatherer:  prometheus.DefaultGatherer,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Wizard API listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP shutdown failed", zap.Error(err))
	}
	sessions.CloseAll(shutdownCtx)

	zapLog.Info("Wizard server stopped gracefully")
}
