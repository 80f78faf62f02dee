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

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/handler"
	"github.com/noah-isme/care-ops-api/internal/repository"
	"github.com/noah-isme/care-ops-api/internal/service"
	"github.com/noah-isme/care-ops-api/pkg/cache"
	"github.com/noah-isme/care-ops-api/pkg/config"
	"github.com/noah-isme/care-ops-api/pkg/database"
	"github.com/noah-isme/care-ops-api/pkg/signing"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, logr, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck
	defer db.Close()

	if cfg.Env == config.EnvProduction && (cfg.JWT.Secret == "dev_secret" || cfg.Discipline.SigningLinkSecret == "dev_signing_secret") {
		return errors.New("JWT_SECRET and SIGNING_LINK_SECRET must be set in production")
	}

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(db); err != nil {
			return err
		}
		logr.Info("database migrations applied")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	actionRepo := repository.NewCorrectiveActionRepository(db)
	categoryRepo := repository.NewViolationCategoryRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	houseRepo := repository.NewHouseRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	catalog := service.NewViolationCatalogService(categoryRepo, cacheSvc, cfg.Catalog.CacheTTL, logr)
	if cfg.Database.AutoMigrate {
		if err := catalog.Invalidate(ctx); err != nil {
			logr.Warn("failed to invalidate catalog cache", zap.Error(err))
		}
	}

	lifecycleOpts := []service.LifecycleOption{
		service.WithMetrics(metrics),
		service.WithViolationDateTolerance(cfg.Discipline.ViolationDateTolerance),
	}
	actions := service.NewCorrectiveActionService(actionRepo, employeeRepo, houseRepo, catalog, auditRepo, logr, lifecycleOpts...)
	signatures := service.NewSignatureService(actionRepo, auditRepo, logr, lifecycleOpts...)
	voids := service.NewVoidService(actionRepo, auditRepo, logr, lifecycleOpts...)
	links := signing.NewLinkSigner(cfg.Discipline.SigningLinkSecret, cfg.Discipline.SigningLinkTTL)
	discipline := service.NewDisciplineService(actions, signatures, voids, catalog, links, auditRepo, validator.New(), logr)

	router := newRouter(cfg, logr, metrics, service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer), routeHandlers{
		actions:    handler.NewCorrectiveActionHandler(discipline),
		links:      handler.NewSigningLinkHandler(discipline, cfg.APIPrefix+"/signing"),
		categories: handler.NewViolationCategoryHandler(discipline),
		system:     handler.NewMetricsHandler(metrics, db, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Error("server failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
