package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadops/timetable-api/api/swagger"
	"github.com/acadops/timetable-api/internal/handler"
	"github.com/acadops/timetable-api/internal/middleware"
	"github.com/acadops/timetable-api/internal/repository"
	"github.com/acadops/timetable-api/internal/service"
	"github.com/acadops/timetable-api/pkg/cache"
	"github.com/acadops/timetable-api/pkg/config"
	"github.com/acadops/timetable-api/pkg/database"
	"github.com/acadops/timetable-api/pkg/jobs"
	"github.com/acadops/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadops/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 0.1.0
// @description Multi-group timetable generation and attendance capture
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

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories.
	groupRepo := repository.NewGroupRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	feasibilitySvc := service.NewFeasibilityService(groupRepo, courseRepo, teacherRepo, classroomRepo, timeSlotRepo, logr)
	schedulerSvc := service.NewSchedulerService(
		groupRepo, courseRepo, teacherRepo, classroomRepo, timeSlotRepo,
		feasibilitySvc, assignmentRepo, db, cacheRepo, metricsSvc, logr,
		service.SchedulerConfig{Deadline: cfg.Scheduler.Deadline})
	timetableSvc := service.NewTimetableService(assignmentRepo, logr)
	instanceSvc := service.NewInstanceService(assignmentRepo, instanceRepo, calendarRepo, groupRepo, cacheRepo, metricsSvc, logr,
		service.InstanceConfig{CacheTTL: cfg.Attendance.InstanceCacheTTL})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, instanceRepo, groupRepo, db, validator.New(), metricsSvc, logr, location)

	audience := ""
	if len(cfg.JWT.Audience) > 0 {
		audience = cfg.JWT.Audience[0]
	}
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, audience)

	// Background absence sweep.
	sweepQueue := jobs.NewQueue("absence-sweep", func(ctx context.Context, job jobs.Job) error {
		_, err := attendanceSvc.SweepAbsences(ctx)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Sweep.Workers,
		MaxRetries: cfg.Sweep.MaxRetries,
		Logger:     logr,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweepQueue.Start(rootCtx)
		defer sweepQueue.Stop()
		go func() {
			ticker := time.NewTicker(cfg.Sweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					job := jobs.Job{ID: uuid.NewString(), Type: "sweep"}
					if err := sweepQueue.Enqueue(job); err != nil {
						logr.Sugar().Warnw("failed to enqueue sweep", "error", err)
					}
				}
			}
		}()
	}

	// Handlers and routes.
	timetableHandler := handler.NewTimetableHandler(feasibilitySvc, schedulerSvc, timetableSvc, instanceSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		api.GET("/timetable", timetableHandler.List)
		api.GET("/timetable/feasibility", timetableHandler.Feasibility)
		api.GET("/timetable/analysis", timetableHandler.Analysis)
		api.POST("/timetable/regenerate", timetableHandler.Regenerate)
		api.GET("/timetable/export/csv", timetableHandler.ExportCSV)
		api.GET("/timetable/export/pdf", timetableHandler.ExportPDF)
		api.GET("/groups/:id/timetable", timetableHandler.ListByGroup)
		api.GET("/teachers/:id/timetable", timetableHandler.ListByTeacher)
		api.GET("/class-instances", timetableHandler.Instances)
		api.GET("/class-instances/:id/attendance", attendanceHandler.InstanceRecords)

		api.POST("/students/:id/attendance-token", attendanceHandler.IssueToken)
		api.POST("/students/:id/attendance-token/qr", attendanceHandler.TokenQR)
		api.GET("/students/:id/attendance", attendanceHandler.StudentRecords)
		api.POST("/attendance/scan", attendanceHandler.Scan)
		api.POST("/attendance/sweep", attendanceHandler.Sweep)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
