package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/presenca-digital/presenca-api/api/swagger"
	"github.com/presenca-digital/presenca-api/internal/handler"
	"github.com/presenca-digital/presenca-api/internal/middleware"
	"github.com/presenca-digital/presenca-api/internal/repository"
	"github.com/presenca-digital/presenca-api/internal/service"
	"github.com/presenca-digital/presenca-api/pkg/cache"
	"github.com/presenca-digital/presenca-api/pkg/config"
	"github.com/presenca-digital/presenca-api/pkg/database"
	"github.com/presenca-digital/presenca-api/pkg/logger"
	corsmiddleware "github.com/presenca-digital/presenca-api/pkg/middleware/cors"
	reqidmiddleware "github.com/presenca-digital/presenca-api/pkg/middleware/requestid"
)

// @title Presenca Digital API
// @version 1.0.0
// @description Attendance and session management API for schools
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := validator.New()

	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	sessionSvc := service.NewSessionService(sessionRepo, classRepo, attendanceRepo, cacheRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionRepo, studentRepo, cacheRepo, cfg.Attendance.TodayCacheTTL, validate, logr)
	reportSvc := service.NewReportService(sessionRepo, classRepo, studentRepo, attendanceRepo, cacheRepo, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	metricsSvc := service.NewMetricsService()

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	classHandler := handler.NewClassHandler(classSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	userHandler := handler.NewUserHandler(userSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	// Facial terminals authenticate at the network layer, not with user tokens.
	api.POST("/attendance/face", attendanceHandler.MarkByFace)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	{
		secured.POST("/sessions", sessionHandler.Open)
		secured.GET("/sessions", sessionHandler.List)
		secured.GET("/sessions/:id", sessionHandler.Get)
		secured.PATCH("/sessions/:id/close", sessionHandler.Close)
		secured.DELETE("/sessions/:id/attendances", sessionHandler.Reset)

		secured.POST("/attendance/manual", attendanceHandler.MarkManual)
		secured.GET("/attendance/today/:classCode", attendanceHandler.Today)
		secured.GET("/attendance/range/:classCode", attendanceHandler.Range)

		secured.GET("/sessions/:id/report", reportHandler.FullReport)
		secured.POST("/sessions/:id/absences", reportHandler.MarkAbsences)
		secured.GET("/sessions/:id/report/export", reportHandler.Export)

		secured.GET("/classes", classHandler.List)
		secured.POST("/classes", classHandler.Create)
		secured.GET("/classes/code/:code", classHandler.GetByCode)
		secured.GET("/classes/:id", classHandler.Get)
		secured.PUT("/classes/:id", classHandler.Update)
		secured.DELETE("/classes/:id", classHandler.Delete)

		secured.GET("/students", studentHandler.List)
		secured.GET("/students/roster/:classCode", studentHandler.Roster)
		secured.POST("/students", studentHandler.Create)
		secured.GET("/students/:id", studentHandler.Get)
		secured.PUT("/students/:id", studentHandler.Update)
		secured.DELETE("/students/:id", studentHandler.Delete)
		secured.PUT("/students/:id/face", studentHandler.EnrollFace)

		secured.GET("/users", userHandler.List)
		secured.POST("/users", userHandler.Create)
		secured.GET("/users/:id", userHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
