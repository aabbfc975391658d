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

	_ "github.com/ujumbe360/school-portal-api/api/swagger"
	"github.com/ujumbe360/school-portal-api/internal/handler"
	"github.com/ujumbe360/school-portal-api/internal/middleware"
	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/repository"
	"github.com/ujumbe360/school-portal-api/internal/service"
	"github.com/ujumbe360/school-portal-api/pkg/cache"
	"github.com/ujumbe360/school-portal-api/pkg/config"
	"github.com/ujumbe360/school-portal-api/pkg/database"
	"github.com/ujumbe360/school-portal-api/pkg/logger"
	corsmiddleware "github.com/ujumbe360/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ujumbe360/school-portal-api/pkg/middleware/requestid"
)

// @title School Portal API
// @version 1.0.0
// @description School administration backend with staff and parent portals
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	examRepo := repository.NewExamRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	authSvc := service.NewAuthService(userRepo, studentRepo, guardianRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		ParentLoginEnabled: cfg.Portal.ParentLoginEnabled,
	})
	studentSvc := service.NewStudentService(studentRepo, guardianRepo, validate, logr)
	guardianSvc := service.NewGuardianService(guardianRepo, studentRepo, validate, logr)
	feeSvc := service.NewFeeService(feeRepo, studentRepo, validate, logr)
	academicSvc := service.NewAcademicService(examRepo, gradeRepo, studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, studentRepo, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, studentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(statsRepo, studentRepo, feeRepo, gradeRepo, attendanceRepo, announcementRepo, redisClient, cfg.Dashboard.CacheTTL, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	guardianHandler := handler.NewGuardianHandler(guardianSvc)
	feeHandler := handler.NewFeeHandler(feeSvc, dashboardSvc, metricsSvc)
	academicHandler := handler.NewAcademicHandler(academicSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc, dashboardSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc, dashboardSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.StaffLogin)
		auth.POST("/parent-login", authHandler.ParentLogin)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), middleware.StaffOnly(), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authSvc), middleware.StaffOnly(), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	staff := protected.Group("")
	staff.Use(middleware.StaffOnly())

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	// Students: reads are scope-checked in the service, writes are staff only.
	protected.GET("/students", studentHandler.List)
	protected.GET("/students/:id", studentHandler.Get)
	staff.POST("/students", studentHandler.Create)
	staff.PUT("/students/:id", studentHandler.Update)
	staff.POST("/students/:id/deactivate", studentHandler.Deactivate)
	admin.DELETE("/students/:id", studentHandler.Delete)
	staff.GET("/students/class-levels", studentHandler.ClassLevels)

	staff.GET("/guardians", guardianHandler.List)
	protected.GET("/guardians/:id", guardianHandler.Get)
	staff.POST("/guardians", guardianHandler.Create)
	staff.PUT("/guardians/:id", guardianHandler.Update)
	protected.PUT("/guardians/:id/password", guardianHandler.SetPassword)
	staff.POST("/guardians/:id/links", guardianHandler.Link)
	staff.DELETE("/guardians/:id/links/:studentId", guardianHandler.Unlink)

	staff.PUT("/fees/structures", feeHandler.SetStructure)
	staff.GET("/fees/structures", feeHandler.ListStructures)
	admin.DELETE("/fees/structures/:id", feeHandler.DeleteStructure)
	staff.POST("/fees/payments", feeHandler.RecordPayment)
	protected.GET("/students/:id/payments", feeHandler.Payments)
	protected.GET("/students/:id/balance", feeHandler.Balance)

	staff.GET("/exams", academicHandler.ListExams)
	staff.GET("/exams/:id", academicHandler.GetExam)
	staff.POST("/exams", academicHandler.CreateExam)
	staff.PUT("/exams/:id", academicHandler.UpdateExam)
	admin.DELETE("/exams/:id", academicHandler.DeleteExam)
	staff.PUT("/grades", academicHandler.EnterGrade)
	staff.DELETE("/grades/:studentId/:examId", academicHandler.DeleteGrade)
	protected.GET("/students/:id/report", academicHandler.Report)
	protected.GET("/students/:id/report/export", academicHandler.ExportReport)

	staff.PUT("/attendance", attendanceHandler.Mark)
	staff.POST("/attendance/bulk", attendanceHandler.BulkMark)
	protected.GET("/students/:id/attendance", attendanceHandler.List)
	protected.GET("/students/:id/attendance/summary", attendanceHandler.Summary)

	protected.GET("/announcements", announcementHandler.List)
	protected.GET("/announcements/:id", announcementHandler.Get)
	staff.POST("/announcements", announcementHandler.Publish)
	staff.PUT("/announcements/:id", announcementHandler.Edit)
	staff.DELETE("/announcements/:id", announcementHandler.Delete)

	protected.GET("/complaints", complaintHandler.List)
	protected.GET("/complaints/:id", complaintHandler.Get)
	protected.POST("/complaints", complaintHandler.Create)
	protected.POST("/complaints/:id/replies", complaintHandler.Reply)
	staff.PUT("/complaints/:id/status", complaintHandler.ChangeStatus)

	staff.GET("/dashboard/admin", dashboardHandler.Admin)
	protected.GET("/dashboard/parent/:id", dashboardHandler.Parent)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logr.Sugar().Infow("server stopped", "addr", addr)
}
