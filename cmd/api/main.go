package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/chendurkumaran/Edu-resource-sub000/api/swagger"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/handler"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/middleware"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	"github.com/chendurkumaran/Edu-resource-sub000/migrations"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/cache"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/config"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/database"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/logger"
	corsmiddleware "github.com/chendurkumaran/Edu-resource-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/chendurkumaran/Edu-resource-sub000/pkg/middleware/requestid"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/storage"
)

// @title Edu-Resource API
// @version 1.0.0
// @description Course catalog, capacity-guarded enrollment, module progression and submission grading
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		if version, err := database.MigrationVersion(ctx, db); err == nil {
			logr.Sugar().Infow("database migrated", "version", version)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, progression cache disabled", "error", err)
		redisClient = nil
	}

	attachmentStore, err := storage.NewAttachmentStore(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db, courseRepo, enrollmentRepo)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)
	progressionSvc := service.NewProgressionService(courseRepo, submissionRepo, enrollmentRepo, cacheRepo, metricsSvc, cfg.Progression, logr)
	courseSvc := service.NewCourseService(courseRepo, assignmentRepo, progressionSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(courseRepo, admissionRepo, enrollmentRepo, notificationSvc, metricsSvc, logr)
	submissionSvc := service.NewSubmissionService(assignmentRepo, courseRepo, submissionRepo, enrollmentRepo, attachmentStore, progressionSvc, notificationSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(courseRepo, assignmentRepo, submissionRepo, userRepo, logr)

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	progressionHandler := handler.NewProgressionHandler(progressionSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, attachmentStore, signer)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/downloads/:token", submissionHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

	// Catalog reads work anonymously so free courses can be browsed.
	api.GET("/courses", middleware.OptionalJWT(authSvc), courseHandler.List)
	api.GET("/courses/:id", middleware.OptionalJWT(authSvc), courseHandler.Get)
	api.GET("/courses/:id/assignments", middleware.OptionalJWT(authSvc), courseHandler.ListAssignments)
	api.GET("/assignments/:assignmentId", middleware.OptionalJWT(authSvc), courseHandler.GetAssignment)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		staff := authed.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor))
		{
			staff.POST("/courses", courseHandler.Create)
			staff.POST("/courses/:id/modules", courseHandler.AddModule)
			staff.POST("/courses/:id/assignments", courseHandler.CreateAssignment)
			staff.PUT("/modules/:moduleId/blocking", courseHandler.SetModuleBlocking)
			staff.PUT("/modules/:moduleId/assignments/:assignmentId", courseHandler.AttachAssignment)
			staff.DELETE("/modules/:moduleId/assignments/:assignmentId", courseHandler.DetachAssignment)
			staff.PUT("/assignments/:assignmentId/published", courseHandler.PublishAssignment)
			staff.GET("/assignments/:assignmentId/submissions", submissionHandler.ListByAssignment)
			staff.PUT("/submissions/:id/grade", submissionHandler.Grade)
			staff.GET("/submissions/:id/grading-context", submissionHandler.GradingContext)
			staff.DELETE("/submissions/:id", submissionHandler.Delete)
			staff.GET("/enrollments", enrollmentHandler.List)
		}

		admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.PUT("/courses/:id/approval", courseHandler.Approve)
		}

		students := authed.Group("", middleware.RequireRoles(models.RoleStudent))
		{
			students.POST("/courses/:id/enroll", enrollmentHandler.Enroll)
			students.DELETE("/courses/:id/enroll", enrollmentHandler.Unenroll)
			students.GET("/courses/:id/enrollment", enrollmentHandler.Status)
			students.POST("/submissions", submissionHandler.Submit)
			students.PUT("/submissions/:id", submissionHandler.Edit)
			students.GET("/assignments/:assignmentId/submission", submissionHandler.GetMine)
		}

		authed.GET("/courses/:id/progression", progressionHandler.Get)
		authed.GET("/courses/:id/modules/:moduleId/access", progressionHandler.ModuleAccess)
		authed.GET("/submissions/:id", submissionHandler.Get)
		authed.GET("/submissions/:id/attachment-url", submissionHandler.AttachmentURL)
		authed.GET("/notifications", notificationHandler.List)
		authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)

		if cfg.Exports.Enabled {
			authed.GET("/courses/:id/gradebook", exportHandler.Gradebook)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
