package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/care-ops-api/api/swagger"
	"github.com/noah-isme/care-ops-api/internal/handler"
	"github.com/noah-isme/care-ops-api/internal/middleware"
	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/service"
	"github.com/noah-isme/care-ops-api/pkg/config"
	"github.com/noah-isme/care-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/care-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/care-ops-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	actions    *handler.CorrectiveActionHandler
	links      *handler.SigningLinkHandler
	categories *handler.ViolationCategoryHandler
	system     *handler.MetricsHandler
}

var (
	issuerRoles = []models.UserRole{models.RoleAdmin, models.RoleHR, models.RoleSupervisor}
	voidRoles   = []models.UserRole{models.RoleAdmin, models.RoleHR}
)

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens middleware.TokenValidator, h routeHandlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", h.system.Health)
	r.GET("/ready", h.system.Ready)
	r.GET("/metrics", h.system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signing links authenticate by token alone.
	signingGroup := api.Group("/signing")
	signingGroup.GET("/:token", h.links.View)
	signingGroup.POST("/:token", h.links.Sign)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	actions := secured.Group("/corrective-actions")
	actions.POST("", middleware.RequireRoles(issuerRoles...), h.actions.Create)
	actions.GET("/:id", middleware.RequireRoles(issuerRoles...), h.actions.Get)
	actions.PATCH("/:id", middleware.RequireRoles(issuerRoles...), h.actions.Update)
	actions.POST("/:id/signatures", middleware.RequireRoles(models.StaffRoles...), h.actions.Sign)
	actions.POST("/:id/void", middleware.RequireRoles(voidRoles...), h.actions.Void)
	actions.GET("/:id/history", middleware.RequireRoles(issuerRoles...), h.actions.History)
	actions.POST("/:id/signing-link", middleware.RequireRoles(issuerRoles...), h.links.Issue)

	employees := secured.Group("/employees")
	employees.GET("/:id/corrective-actions", middleware.RequireRoles(issuerRoles...), h.actions.ListByEmployee)
	employees.GET("/:id/discipline-points", middleware.RequireRoles(issuerRoles...), h.actions.DisciplinePoints)

	categories := secured.Group("/violation-categories")
	categories.Use(middleware.RequireRoles(models.StaffRoles...))
	categories.GET("", h.categories.List)
	categories.GET("/:id", h.categories.Get)

	return r
}
