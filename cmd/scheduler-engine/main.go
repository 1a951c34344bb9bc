package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/timetable-engine/api/swagger"
	"github.com/noah-isme/timetable-engine/internal/handler"
	"github.com/noah-isme/timetable-engine/internal/middleware"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/service"
	"github.com/noah-isme/timetable-engine/pkg/cache"
	"github.com/noah-isme/timetable-engine/pkg/config"
	"github.com/noah-isme/timetable-engine/pkg/database"
	"github.com/noah-isme/timetable-engine/pkg/export"
	"github.com/noah-isme/timetable-engine/pkg/lock"
	"github.com/noah-isme/timetable-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-engine/pkg/worker"
)

// @title Timetable Engine API
// @version 0.1.0
// @description School timetable generation and incremental rescheduling
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, falling back to local term locks", "error", err)
		redisClient = nil
	}

	var locker lock.TermLocker
	if redisClient != nil {
		locker = lock.NewRedisTermLocker(redisClient, cfg.Locks.TTL)
	} else {
		locker = lock.NewLocalTermLocker()
	}

	terms := repository.NewTermRepository(db)
	slots := repository.NewTimeSlotRepository(db)
	sections := repository.NewSectionRepository(db)
	subjects := repository.NewSubjectRepository(db)
	teachers := repository.NewTeacherRepository(db)
	rooms := repository.NewRoomRepository(db)
	offerings := repository.NewOfferingRepository(db)
	lessons := repository.NewLessonRepository(db)
	projections := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	pool := worker.NewPool("solver", cfg.Solver.MaxConcurrent, logr)

	loaderSvc := service.NewLoaderService(terms, slots, sections, subjects, teachers, rooms, offerings, lessons, logr)
	timetableSvc := service.NewTimetableService(
		loaderSvc, lessons, slots, terms, teachers, projections,
		locker, pool, metricsSvc, validate, logr,
		cfg.Solver, cfg.Cache,
	)
	exportSvc := service.NewExportService(timetableSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Exports.Enabled)

	engineHandler := handler.NewEngineHandler(timetableSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/generate", engineHandler.Generate)
	api.POST("/update-lesson", engineHandler.UpdateLesson)
	api.POST("/check-feasibility", engineHandler.CheckFeasibility)
	api.GET("/timetable", engineHandler.Timetable)
	api.GET("/timetable/export", engineHandler.Export)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
