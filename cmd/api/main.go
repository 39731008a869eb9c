package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/occuhealth/ehr-platform/internal/api/router"
	"github.com/occuhealth/ehr-platform/internal/audit"
	appconfig "github.com/occuhealth/ehr-platform/internal/config"
	"github.com/occuhealth/ehr-platform/internal/encounter"
	"github.com/occuhealth/ehr-platform/internal/observability/metrics"
	"github.com/occuhealth/ehr-platform/internal/patients"
	"github.com/occuhealth/ehr-platform/internal/sessions"
	"github.com/occuhealth/ehr-platform/internal/vitals"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

func main() {
	// In development a .env keeps local credentials out of the shell.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting ehr-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.AuthJWTSecret == "" && cfg.Env != "development" {
		logger.Error("AUTH_JWT_SECRET is required outside development")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	auditMetrics := metrics.NewAuditMetrics(nil)
	encounterMetrics := metrics.NewEncounterMetrics(nil)

	auditOpts := []audit.Option{audit.WithMetrics(auditMetrics)}
	if cfg.AuditLogFile != "" {
		mirror, err := os.OpenFile(cfg.AuditLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			logger.Error("failed to open audit log file", "error", err, "path", cfg.AuditLogFile)
			os.Exit(1)
		}
		defer func() { _ = mirror.Close() }()
		auditOpts = append(auditOpts, audit.WithMirror(mirror))
	}
	auditSvc := audit.NewService(db, logger.WithComponent("audit"), auditOpts...)

	patientRepo := patients.NewPostgresRepository(db)
	patientSvc := patients.NewService(patientRepo, auditSvc, logger)

	encounterSvc := encounter.NewService(encounter.ServiceConfig{
		Repo:     encounter.NewPostgresRepository(db),
		Vitals:   vitals.NewRepository(db),
		Patients: patientRepo,
		Trail:    auditSvc,
		Metrics:  encounterMetrics,
		Logger:   logger,
	})

	sessionStore := sessions.NewStore(redisClient, cfg.SessionTTL)
	sessionsHandler := sessions.NewHandler(
		sessions.NewPostgresUsers(db), sessionStore, auditSvc, cfg.AuthJWTSecret, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		EncounterHandler:   encounter.NewHandler(encounterSvc, logger),
		PatientsHandler:    patients.NewHandler(patientSvc, logger),
		AuditHandler:       audit.NewHandler(auditSvc, logger),
		SessionsHandler:    sessionsHandler,
		SessionStore:       sessionStore,
		AuthSecret:         cfg.AuthJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSec:    cfg.RateLimitPerSec,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
