package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/scolaris/vie-scolaire-api/api/swagger"
	"github.com/scolaris/vie-scolaire-api/internal/handler"
	"github.com/scolaris/vie-scolaire-api/internal/middleware"
	"github.com/scolaris/vie-scolaire-api/internal/models"
	"github.com/scolaris/vie-scolaire-api/internal/repository"
	"github.com/scolaris/vie-scolaire-api/internal/service"
	"github.com/scolaris/vie-scolaire-api/pkg/cache"
	"github.com/scolaris/vie-scolaire-api/pkg/config"
	"github.com/scolaris/vie-scolaire-api/pkg/database"
	"github.com/scolaris/vie-scolaire-api/pkg/logger"
	corsmiddleware "github.com/scolaris/vie-scolaire-api/pkg/middleware/cors"
	reqidmiddleware "github.com/scolaris/vie-scolaire-api/pkg/middleware/requestid"
)

// @title Vie Scolaire API
// @version 1.0.0
// @description Student conduct scoring service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Conduct.StatsCacheTTL, logr, cfg.Conduct.StatsCacheEnabled)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "vie-scolaire-api",
	})
	conductSvc := service.NewConductService(incidentRepo, attendanceRepo, scoreRepo, metricsSvc, logr)
	statsSvc := service.NewStatsService(service.StatsServiceParams{
		Scores:       scoreRepo,
		Incidents:    incidentRepo,
		Periods:      periodRepo,
		Cache:        cacheSvc,
		Metrics:      metricsSvc,
		Logger:       logr,
		RecentWindow: cfg.Conduct.RecentIncidentWindow,
		CacheTTL:     cfg.Conduct.StatsCacheTTL,
	})
	incidentSvc := service.NewIncidentService(incidentRepo, periodRepo, conductSvc, statsSvc, nil, logr)
	periodSvc := service.NewPeriodService(periodRepo, logr)
	exportSvc := service.NewExportService(scoreRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	incidentHandler := handler.NewIncidentHandler(incidentSvc)
	scoreHandler := handler.NewScoreHandler(conductSvc, periodSvc, exportSvc)
	statsHandler := handler.NewStatsHandler(statsSvc, periodSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	manageConduct := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleDirector, models.RoleEducator)
	readConduct := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleDirector, models.RoleEducator, models.RoleTeacher)

	conduct := api.Group("/conduct", middleware.JWT(authSvc))
	conduct.POST("/incidents", manageConduct, incidentHandler.Create)
	conduct.GET("/incidents", readConduct, incidentHandler.List)
	conduct.DELETE("/incidents/:id", manageConduct, incidentHandler.Deactivate)
	conduct.GET("/scores/:studentId", scoreHandler.Get)
	conduct.POST("/scores/:studentId/recompute", manageConduct, scoreHandler.Recompute)
	if cfg.Exports.Enabled {
		conduct.GET("/scores/export", readConduct, scoreHandler.Export)
	}
	conduct.GET("/stats", readConduct, statsHandler.Get)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
