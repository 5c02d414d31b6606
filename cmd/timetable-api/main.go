package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Academic timetable engine: schedule entries, conflict and load rules, free slots and term audits
// @BasePath /
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

	catalogue, err := models.ParsePeriodCatalogue(cfg.Scheduler.StandardPeriods)
	if err != nil {
		logr.Fatal("invalid standard periods", zap.String("periods", cfg.Scheduler.StandardPeriods), zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var redisClient redis.UniversalClient
	if cfg.Scheduler.AuditCacheEnabled {
		client, err := cache.NewRedis(cfg.Redis, logr)
		if err != nil {
			logr.Warn("redis unavailable, audit cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Scheduler.AuditCacheTTL,
		logr,
		cfg.Scheduler.AuditCacheEnabled && redisClient != nil,
	)
	if cacheSvc.Enabled() {
		if err := cacheSvc.Invalidate(ctx, cache.Key("conflicts", "*")); err != nil {
			logr.Warn("failed to flush stale audit reports", zap.Error(err))
		}
	}

	entryRepo := repository.NewScheduleEntryRepository(db, metricsSvc)
	subjectRepo := repository.NewSubjectRepository(db)

	schedulingSvc := service.NewSchedulingService(entryRepo, subjectRepo, service.SchedulingConfig{
		TeacherCeilingMinutes: cfg.Scheduler.TeacherCeilingMinutes,
		Policy:                service.ConflictPolicy{CheckClass: cfg.Scheduler.ClassConflicts},
		Catalogue:             catalogue,
		Rooms:                 cfg.Scheduler.Rooms,
	}, metricsSvc, logr)

	auditSvc := service.NewAuditService(schedulingSvc, cacheSvc, metricsSvc, logr)
	auditQueue := jobs.NewQueue(service.AuditJobType, auditSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Scheduler.AuditWorkers,
		MaxRetries: cfg.Scheduler.AuditRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	auditQueue.Start(ctx)
	defer auditQueue.Stop()
	auditSvc.UseQueue(auditQueue)

	commandSvc := service.NewScheduleCommandService(entryRepo, schedulingSvc, auditSvc, validate, metricsSvc, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Schedules:  handler.NewScheduleEntryHandler(commandSvc),
		Timetables: handler.NewTimetableHandler(schedulingSvc, service.NewCalendarService()),
		Audit:      handler.NewAuditHandler(auditSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Int("teacher_ceiling_minutes", cfg.Scheduler.TeacherCeilingMinutes),
			zap.Bool("class_conflicts", cfg.Scheduler.ClassConflicts),
			zap.Int("periods", len(catalogue.Periods)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
