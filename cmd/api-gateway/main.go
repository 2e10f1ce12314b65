package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/uni-adp-api/internal/handler"
	"github.com/noah-isme/uni-adp-api/internal/middleware"
	"github.com/noah-isme/uni-adp-api/internal/repository"
	"github.com/noah-isme/uni-adp-api/internal/service"
	"github.com/noah-isme/uni-adp-api/pkg/cache"
	"github.com/noah-isme/uni-adp-api/pkg/config"
	"github.com/noah-isme/uni-adp-api/pkg/database"
	"github.com/noah-isme/uni-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-adp-api/pkg/middleware/requestid"
)

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

	var redisClient *redis.Client
	if cfg.History.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, history caching disabled", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	courseRepo := repository.NewCourseRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	resultRepo := repository.NewSemesterResultRepository(db)

	metricsSvc := service.NewMetricsService()
	scheduleSvc := service.NewScheduleService(scheduleRepo, courseRepo, semesterRepo, metricsSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, scheduleRepo, studentRepo, metricsSvc, nil, logr)
	historySvc := service.NewHistoryService(studentRepo, resultRepo, gradeRepo, enrollmentRepo, redisClient, metricsSvc, cfg.History.CacheTTL, logr)
	gpaSvc := service.NewGPAService(gradeRepo, resultRepo, studentRepo, historySvc, metricsSvc, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, gpaSvc, nil, logr)
	catalogSvc := service.NewCatalogService(courseRepo, semesterRepo, studentRepo, nil, logr)

	scheduleHdl := handler.NewScheduleHandler(scheduleSvc)
	enrollmentHdl := handler.NewEnrollmentHandler(enrollmentSvc)
	gradeHdl := handler.NewGradeHandler(gradeSvc)
	studentHdl := handler.NewStudentHandler(catalogSvc, historySvc, gpaSvc)
	catalogHdl := handler.NewCatalogHandler(catalogSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/courses", catalogHdl.ListCourses)
		api.POST("/courses", catalogHdl.CreateCourse)
		api.GET("/courses/:id", catalogHdl.GetCourse)
		api.GET("/semesters", catalogHdl.ListSemesters)
		api.GET("/semesters/:id", catalogHdl.GetSemester)

		api.GET("/schedules", scheduleHdl.List)
		api.POST("/schedules", scheduleHdl.Create)
		api.PUT("/schedules/:id", scheduleHdl.Update)
		api.DELETE("/schedules/:id", scheduleHdl.Delete)

		api.GET("/enrollments", enrollmentHdl.List)
		api.POST("/enrollments", enrollmentHdl.Enroll)
		api.POST("/enrollments/:id/drop", enrollmentHdl.Drop)
		api.GET("/enrollments/:id/grade", gradeHdl.GetByEnrollment)

		api.POST("/grades", gradeHdl.Record)
		api.POST("/grades/bulk", gradeHdl.BulkRecord)
		api.DELETE("/grades/:id", gradeHdl.Delete)

		api.GET("/students/:id", studentHdl.Get)
		api.GET("/students/:id/history", studentHdl.History)
		api.GET("/students/:id/summary", studentHdl.Summary)
		api.POST("/students/:id/recompute", studentHdl.Recompute)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
