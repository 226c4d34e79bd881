// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"admissions-wizard/internal/common/aws"
	"admissions-wizard/internal/common/camunda"
	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/database"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/observability"
	"admissions-wizard/internal/common/validation"

	car "admissions-wizard/internal/workers/application/create-application-record"
	sn "admissions-wizard/internal/workers/application/send-notification"
	vr "admissions-wizard/internal/workers/application/validate-application-record"
)

// Health/metrics listener; the wizard API owns :8080.
const healthAddress = ":8081"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs, err := observability.New("worker-manager")
	if err != nil {
		zapLog.Warn("otel exporter unavailable", zap.Error(err))
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

	// --- Init Zeebe Client with retry ---
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
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = database.RetryWithBackoff(ctx, func() error {
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
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init AWS senders ---
	notifyDeps := sn.Deps{DB: pg.DB}
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Integrations.AWS.SES.Enabled {
			from := cfg.Notifications.Email.FromEmail
			if from == "" {
				from = cfg.Integrations.AWS.SES.FromEmail
			}
			notifyDeps.Email = aws.NewSESClient(awsCfg, from)
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			notifyDeps.SMS = aws.NewSNSClient(awsCfg, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		}
	}

	schema, err := validation.Load(validation.SubmissionSchemaName)
	if err != nil {
		zapLog.Fatal("submission schema failed to compile", zap.Error(err))
	}

	// --- Register workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandlerFunc) {
		if jw := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	register(vr.TaskType, vr.NewHandler(
		vr.LoadConfig(config.GetWorkerConfig(cfg, vr.TaskType)), schema, log).Handle)
	register(car.TaskType, car.NewHandler(
		car.LoadConfig(config.GetWorkerConfig(cfg, car.TaskType)), pg.DB, log).Handle)
	register(sn.TaskType, sn.NewHandler(sn.LoadConfig(cfg), notifyDeps, log).Handle)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	healthServer := &http.Server{Addr: healthAddress, Handler: http.DefaultServeMux}
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		statuses, err := conns.Check(r.Context(), 2*time.Second)
		status := http.StatusOK
		if err != nil {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   http.StatusText(status),
			"backends": statuses,
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", healthAddress))
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, jw := range workers {
		jw.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Health/Metrics shutdown failed", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
