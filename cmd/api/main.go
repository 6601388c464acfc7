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

	_ "github.com/GuilhermeRVaz/sisgoe-api/api/swagger"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/handler"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/middleware"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/repository"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/service"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/cache"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/config"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/database"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/export"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/jobs"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/logger"
	corsmiddleware "github.com/GuilhermeRVaz/sisgoe-api/pkg/middleware/cors"
	reqidmiddleware "github.com/GuilhermeRVaz/sisgoe-api/pkg/middleware/requestid"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/storage"
)

// @title SisGOE API
// @version 1.0.0
// @description Enrollment document verification and secretariat backend
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, checklist cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	checklistRepo := repository.NewChecklistRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	sheetJobRepo := repository.NewSheetJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sisgoe-api",
	})
	studentService := service.NewStudentService(studentRepo, logr)
	checklistService := service.NewChecklistService(checklistRepo, studentRepo, templateRepo, historyRepo, cacheRepo, validate, logr, service.ChecklistServiceConfig{
		CacheEnabled: cfg.Checklist.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Checklist.CacheTTL,
	})
	templateService := service.NewTemplateService(templateRepo, validate, logr)
	exportService := service.NewChecklistExportService(checklistService, nil, nil, logr)

	documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentService := service.NewDocumentService(documentRepo, studentRepo, documentSigner, logr)

	var sheetService *service.SheetService
	var sheetQueue *jobs.Queue
	if cfg.Sheets.Enabled {
		sheetStore, err := storage.NewLocalStorage(cfg.Sheets.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init sheet storage", "error", err)
		}
		filler := export.NewXLSXFiller(cfg.Sheets.TemplatePath, cfg.Sheets.WorksheetName)
		sheetSigner := storage.NewSignedURLSigner(cfg.Sheets.SignedURLSecret, cfg.Sheets.SignedURLTTL)
		builder := service.NewSheetBuilder(studentService, filler, sheetStore, sheetSigner, service.SheetBuilderConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Sheets.SignedURLTTL,
		}, logr)

		worker := service.NewSheetWorker(sheetJobRepo, builder, cfg.Sheets.WorkerRetries, logr)
		sheetQueue = jobs.NewQueue("enrollment-sheets", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Sheets.WorkerConcurrency,
			MaxRetries: cfg.Sheets.WorkerRetries,
			Logger:     logr,
		})
		sheetQueue.Start(ctx)
		defer sheetQueue.Stop()

		sheetService = service.NewSheetService(sheetJobRepo, sheetQueue, builder, logr, service.SheetServiceConfig{
			ResultTTL:       cfg.Sheets.SignedURLTTL,
			CleanupInterval: cfg.Sheets.CleanupInterval,
			MaxRetries:      cfg.Sheets.WorkerRetries,
		})
		sheetService.RecoverPendingJobs(ctx)
		sheetService.StartCleanup(ctx)
	}

	var metricsService *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsService = service.NewMetricsService()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	checklistHandler := handler.NewChecklistHandler(checklistService, exportService)
	templateHandler := handler.NewTemplateHandler(templateService)
	documentHandler := handler.NewDocumentHandler(documentService)
	sheetHandler := handler.NewSheetHandler(sheetService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsService != nil {
		r.Use(middleware.Metrics(metricsService))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if metricsService != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	protected.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleSecretary))

	students := protected.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:studentId", studentHandler.Get)
		students.GET("/:studentId/profile", studentHandler.Profile)

		checklist := students.Group("/:studentId/checklist")
		checklist.GET("", checklistHandler.Get)
		checklist.POST("", middleware.Audit(userRepo, models.AuditActionChecklistCreate, "checklist"), checklistHandler.Create)
		checklist.PUT("", middleware.Audit(userRepo, models.AuditActionChecklistUpdate, "checklist"), checklistHandler.Replace)
		checklist.PATCH("", middleware.Audit(userRepo, models.AuditActionChecklistUpdate, "checklist"), checklistHandler.UpdateDocument)
		checklist.POST("/approve", middleware.Audit(userRepo, models.AuditActionDocumentApprove, "checklist"), checklistHandler.Approve)
		checklist.POST("/reject", middleware.Audit(userRepo, models.AuditActionDocumentReject, "checklist"), checklistHandler.Reject)
		checklist.POST("/approve-all", middleware.Audit(userRepo, models.AuditActionChecklistBulkEdit, "checklist"), checklistHandler.ApproveAll)
		checklist.POST("/reject-all", middleware.Audit(userRepo, models.AuditActionChecklistBulkEdit, "checklist"), checklistHandler.RejectAll)
		checklist.GET("/history", checklistHandler.History)
		if cfg.Exports.Enabled {
			checklist.GET("/export", checklistHandler.Export)
		}

		if cfg.Documents.Enabled {
			students.GET("/:studentId/documents", documentHandler.ListForStudent)
		}
		if sheetService != nil {
			students.POST("/:studentId/enrollment-sheet", middleware.Audit(userRepo, models.AuditActionSheetGenerate, "enrollment-sheet"), sheetHandler.Generate)
		}
	}

	if cfg.Documents.Enabled {
		protected.GET("/documents/:id", documentHandler.Get)
	}

	if sheetService != nil {
		sheets := protected.Group("/enrollment-sheets")
		sheets.POST("", middleware.Audit(userRepo, models.AuditActionSheetGenerate, "enrollment-sheet"), sheetHandler.CreateJob)
		sheets.GET("/:id", sheetHandler.Status)
		// Download is token-authenticated so the link can be opened from a browser.
		api.GET("/enrollment-sheets/download/:token", sheetHandler.Download)
	}

	templates := protected.Group("/templates")
	templates.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		templates.GET("", templateHandler.List)
		templates.POST("", middleware.Audit(userRepo, models.AuditActionTemplateWrite, "template"), templateHandler.Create)
		templates.PUT("/:id", middleware.Audit(userRepo, models.AuditActionTemplateWrite, "template"), templateHandler.Update)
		templates.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionTemplateWrite, "template"), templateHandler.Deactivate)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
