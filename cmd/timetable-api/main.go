package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly school timetable generation and teacher gap optimization.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled and optimizer locks kept in-process", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled && redisClient != nil)
	locker := repository.NewLockRepository(redisClient, "timetable:lock:")

	repos := service.TimetableRepositories{
		Teachers:  repository.NewTeacherRepository(db),
		Lessons:   repository.NewLessonRepository(db),
		Locations: repository.NewLocationRepository(db),
		Tracks:    repository.NewTrackRepository(db),
		Overrides: repository.NewAssignmentOverrideRepository(db),
		Saved:     repository.NewSavedScheduleRepository(db),
	}
	timetableSvc := service.NewTimetableService(repos, cacheSvc, locker, metrics, validator.New(), logr, service.TimetableConfig{
		Days:        cfg.Scheduler.Days,
		HoursPerDay: cfg.Scheduler.HoursPerDay,
		Solver: scheduler.Options{
			Weights: scheduler.Weights{
				Variance:   cfg.Scheduler.WeightVariance,
				Gaps:       cfg.Scheduler.WeightGaps,
				Unassigned: cfg.Scheduler.WeightUnassigned,
				Spread:     cfg.Scheduler.WeightSpread,
			},
			MaxBlockHours:   cfg.Scheduler.MaxBlockHours,
			Workers:         cfg.Scheduler.Workers,
			CoResourceCount: cfg.Scheduler.CoResourceCount,
			SharedLocation:  cfg.Scheduler.SharedLocation,
		},
		SolveTimeout:       cfg.Scheduler.Timeout,
		OptimizerMaxPasses: cfg.Optimizer.MaxPasses,
		OptimizeTimeout:    cfg.Optimizer.Timeout,
		LockTTL:            cfg.Optimizer.LockTTL,
		CacheTTL:           cfg.Timetable.CacheTTL,
	})
	exportSvc := service.NewExportService(timetableSvc, logr, nil, nil)

	checks := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	timetableHandler.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
