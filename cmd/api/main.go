// VeriHire API server: candidate background verification sessions, fraud
// analysis and reporting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/verihire/verihire-backend/internal/api/rest"
	"github.com/verihire/verihire-backend/internal/infrastructure/cache"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
	"github.com/verihire/verihire-backend/internal/infrastructure/database"
	"github.com/verihire/verihire-backend/internal/infrastructure/directory"
	"github.com/verihire/verihire-backend/internal/infrastructure/github"
	"github.com/verihire/verihire-backend/internal/infrastructure/llm"
	"github.com/verihire/verihire-backend/internal/infrastructure/metrics"
	"github.com/verihire/verihire-backend/internal/infrastructure/outbound"
	"github.com/verihire/verihire-backend/internal/infrastructure/repository"
	"github.com/verihire/verihire-backend/internal/infrastructure/telemetry"
	"github.com/verihire/verihire-backend/internal/service/callmonitor"
	"github.com/verihire/verihire-backend/internal/service/fraud"
	verifsvc "github.com/verihire/verihire-backend/internal/service/verification"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "verihire-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("VH_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting verihire api",
		slog.String("version", version),
		slog.String("environment", cfg.Environment))

	tracing, err := telemetry.InitTracing(ctx, telemetry.Config{
		ServiceName:    "verihire-api",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		SamplingRate:   0.1,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	store := repository.NewSessionRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Redis is optional: without it the API serves reports from the
	// database and rate limits per instance only.
	var reportCache rest.ReportCache
	var sharedLimiter rest.DistributedLimiter
	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, running without shared cache",
			slog.String("error", err.Error()))
	} else {
		defer redisClient.Close()
		reportCache = cache.NewReportCache(redisClient, cfg.Redis.ReportTTL, logger)
		sharedLimiter = cache.NewRateLimiter(redisClient, logger)
	}

	githubClient := github.NewClient(cfg.Github, logger)
	phone := outbound.NewPhoneProvider(cfg.CallProvider, logger)
	monitor := callmonitor.New(phone, logger)
	analyzer := llm.NewAnalyzer(cfg.LLM, logger)

	emailSender, err := outbound.NewEmailSender(ctx, cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("initializing email sender: %w", err)
	}

	var employers verifsvc.EmployerDirectory
	if cfg.Verification.HRDirectoryPath != "" {
		employers, err = directory.LoadFile(cfg.Verification.HRDirectoryPath)
		if err != nil {
			return fmt.Errorf("loading hr directory: %w", err)
		}
	} else {
		employers = directory.NewStatic(nil)
	}

	fraudCfg := fraud.DefaultConfig()
	if cfg.Verification.StrictMode {
		fraudCfg = fraud.StrictConfig()
	}
	engine := fraud.NewEngine(fraudCfg)

	orchestrator := verifsvc.NewOrchestrator(
		store, githubClient, phone, monitor, emailSender, analyzer,
		employers, engine, m, logger,
		verifsvc.Config{
			MaxCallWait:          cfg.Verification.MaxCallWait,
			PollInterval:         cfg.Verification.PollInterval,
			WorkerTimeout:        cfg.Verification.WorkerTimeout,
			ReferenceParallelism: cfg.Verification.ReferenceParallelism,
		},
	)

	auth := rest.NewAuthMiddleware(cfg.Security, logger)
	rateLimit := rest.NewRateLimitMiddleware(cfg.Security.RateLimit, sharedLimiter, logger)
	router := rest.NewRouter(rest.RouterDeps{
		Handler:   rest.NewHandler(orchestrator, reportCache, logger, version),
		Auth:      auth,
		RateLimit: rateLimit,
		Registry:  registry,
		Logger:    logger,
	})

	server := rest.NewServer(cfg.Server, router, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
