package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/config"
	"github.com/formacionweb360/training-service/internal/metrics"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	catalogHandler    *CatalogHandler
	activationHandler *ActivationHandler
	userHandler       *UserHandler
	dashboardHandler  *DashboardHandler
	advisorHandler    *AdvisorHandler
	authMiddleware    *AuthMiddleware

	serviceManager services.ServiceManager
	loginLimit     config.RateLimitConfig
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	loginLimit config.RateLimitConfig,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Session(), serviceManager.User(), serviceManager.QR(), logger),
		catalogHandler:    NewCatalogHandler(serviceManager.Catalog(), logger),
		activationHandler: NewActivationHandler(serviceManager.Activation(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), serviceManager.Report(), logger),
		advisorHandler:    NewAdvisorHandler(serviceManager.Dashboard(), serviceManager.Progress(), logger),
		authMiddleware:    NewAuthMiddleware(serviceManager.Session(), logger),
		serviceManager:    serviceManager,
		loginLimit:        loginLimit,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/login", RateLimitMiddleware(hm.loginLimit.MaxRequests, hm.loginLimit.Window), hm.authHandler.Login)
		auth.POST("/casdoor", hm.authHandler.LoginCasdoor)
	}

	// Everything below requires a live session
	private := v1.Group("")
	private.Use(hm.authMiddleware.RequireSession())
	{
		private.POST("/auth/logout", hm.authHandler.Logout)
		private.GET("/me", hm.authHandler.Me)
		private.GET("/me/qr", hm.authHandler.MyQR)

		catalog := private.Group("/catalog")
		{
			catalog.GET("/campaigns", hm.catalogHandler.ListCampaigns)
			catalog.GET("/campaigns/:id/groups", hm.catalogHandler.ListGroups)
			catalog.GET("/courses", hm.catalogHandler.ListCourses)
		}

		// Trainer routes - Trainers and Admins only
		trainer := private.Group("/formador")
		trainer.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTrainer, models.RoleAdmin))
		{
			trainer.POST("/activations", hm.activationHandler.Activate)
			trainer.GET("/activations/today", hm.activationHandler.ListToday)
			trainer.DELETE("/activations/:id", hm.activationHandler.Deactivate)
			trainer.POST("/activations/:id/repair", hm.activationHandler.Repair)

			trainer.GET("/users", hm.userHandler.ListUsers)
			trainer.PUT("/users/:id/status", hm.userHandler.SetStatus)
			trainer.PUT("/users/:id/attendance", hm.userHandler.MarkAttendance)
			trainer.POST("/attendance/qr", hm.userHandler.CheckInByQR)
		}

		// Admin routes - Admins only
		admin := private.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/summary", hm.dashboardHandler.GetSummary)
			admin.GET("/attendance", hm.dashboardHandler.GetAttendance)
			admin.GET("/attendance/export", hm.dashboardHandler.ExportAttendance)
		}

		// Advisor routes - Advisors only
		advisor := private.Group("/asesor")
		advisor.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdvisor))
		{
			advisor.GET("/cursos", hm.advisorHandler.MyCourses)
			advisor.GET("/cursos/:activation_id", hm.advisorHandler.OpenCourse)
			advisor.POST("/cursos/:activation_id", hm.advisorHandler.OpenCourse)
			advisor.POST("/cursos/:activation_id/heartbeat", hm.advisorHandler.Heartbeat)
			advisor.POST("/cursos/:activation_id/close", hm.advisorHandler.CloseCourse)
			advisor.POST("/cursos/:activation_id/complete", hm.advisorHandler.CompleteCourse)
		}
	}

	router.GET("/metrics", metrics.PrometheusHandler())

	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "training-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "training-service",
		})
	})
}
