package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/carepoint/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "carepoint",
		Short:         "Healthcare administration API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			return database.Migrate(db, log)
		},
	}
}

// bootstrap loads .env (if any), configuration and the root logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger.WithService(log, cfg.App), nil
}

func runServer(migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initialising tracer: %w", err)
	}

	m := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Instrument(db, m.DBQueryDuration); err != nil {
		return fmt.Errorf("instrumenting database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := m.RegisterDBStats(sqlDB, cfg.Database.Name); err != nil {
			log.Warn("db stats collector not registered", zap.Error(err))
		}
	}
	if migrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}

	store := postgres.NewStore(db)
	patientRepo := store.Patients()
	providerRepo := store.Providers()

	auditSvc := service.NewAuditService(store.AuditLogs(), cfg.Audit, m, log)
	userSvc := service.NewUserService(store.Users(), auditSvc, log)
	authSvc := service.NewAuthService(store.Users(), auth.NewJWTManager(cfg.JWT), auditSvc, m, log)
	patientSvc := service.NewPatientService(store, patientRepo, userSvc, auditSvc, m, log)
	providerSvc := service.NewProviderService(store, providerRepo, userSvc, auditSvc, m, log)
	apptSvc := service.NewAppointmentService(store.Appointments(), patientRepo, providerRepo, auditSvc, m, log)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	go limiter.Run(ctx)

	var authLimiter *middleware.RateLimiter
	if rpm := cfg.RateLimit.AuthRequestsPerMinute; rpm > 0 {
		authLimiter = middleware.NewRateLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
		go authLimiter.Run(ctx)
	}

	router, err := v1.NewRouter(v1.RouterDeps{
		Auth:            authSvc,
		Users:           userSvc,
		Patients:        patientSvc,
		Providers:       providerSvc,
		Appointments:    apptSvc,
		Authenticator:   authSvc,
		Metrics:         m,
		Gatherer:        prometheus.DefaultGatherer,
		Ping:            func(ctx context.Context) error { return database.Ping(ctx, db) },
		RateLimiter:     limiter,
		AuthRateLimiter: authLimiter,
		CORS:            cfg.CORS,
		Version:         cfg.App.Version,
		Log:             log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	return shutdown(cfg, log, srv, auditSvc, tp.Shutdown, db)
}

func shutdown(cfg *config.Config, log *zap.Logger, srv *http.Server, auditSvc *service.AuditService, stopTracer func(context.Context) error, db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	// Drain audit entries before the pool closes.
	auditSvc.Shutdown()

	if err := stopTracer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	if err := database.Close(db); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("shutdown completed with errors", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
