package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"telemed-server/internal/config"
	"telemed-server/internal/consultation"
	"telemed-server/internal/handlers"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/pkg/logging"
)

// Dependencies are the wired services the routes hand to handlers.
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Engine   *consultation.Engine
	Repo     consultation.Repository
	Catalog  *consultation.Catalog
	Logger   *logging.Logger
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.DB, cfg)
	userHandler := handlers.NewUserHandler(deps.DB, deps.Engine)
	consultationHandler := handlers.NewConsultationHandler(deps.Engine, deps.Repo, cfg.RoomTokenSecret, deps.Logger)
	issueHandler := handlers.NewHealthIssueHandler(deps.Catalog)
	messageHandler := handlers.NewMessageHandler(deps.DB, deps.Repo)
	recordHandler := handlers.NewHealthRecordHandler(deps.DB)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)
		staff := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)
		doctorOnly := middleware.RoleAuthMiddleware(models.RoleDoctor)
		patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)

		// User management (admin)
		userRoutes := private.Group("/users", adminOnly)
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.PATCH("/:id/status", userHandler.SetUserStatus)
		}

		// Health-issue catalog
		issueRoutes := private.Group("/health-issues")
		{
			issueRoutes.GET("", issueHandler.List)
			issueRoutes.POST("", adminOnly, issueHandler.Add)
			issueRoutes.PATCH("/:id/toggle", adminOnly, issueHandler.Toggle)
		}

		// Consultation lifecycle; finer ownership checks happen in the handler
		consultationRoutes := private.Group("/consultations")
		{
			consultationRoutes.POST("", patientOnly, consultationHandler.Submit)
			consultationRoutes.GET("", consultationHandler.List)
			consultationRoutes.GET("/pending", staff, consultationHandler.Pending)
			consultationRoutes.GET("/next", consultationHandler.Next)
			consultationRoutes.GET("/stats", consultationHandler.Stats)
			consultationRoutes.GET("/:id", consultationHandler.Get)
			consultationRoutes.PATCH("/:id/assign", staff, consultationHandler.Assign)
			consultationRoutes.PATCH("/:id/reschedule", staff, consultationHandler.Reschedule)
			consultationRoutes.PATCH("/:id/complete", doctorOnly, consultationHandler.Complete)
			consultationRoutes.PATCH("/:id/cancel", consultationHandler.Cancel)
			consultationRoutes.POST("/:id/room", consultationHandler.JoinRoom)
			consultationRoutes.GET("/:id/messages", messageHandler.GetMessages)
			consultationRoutes.POST("/:id/messages", messageHandler.SendMessage)
		}

		// Doctor directory and doctor self-service
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", userHandler.GetDoctors)
			doctorRoutes.GET("/:id/availability", userHandler.GetAvailability)
			doctorRoutes.PUT("/me/availability", doctorOnly, userHandler.UpdateMyAvailability)
			doctorRoutes.GET("/me/patients", doctorOnly, userHandler.GetMyPatients)
			doctorRoutes.GET("/me/schedule", doctorOnly, userHandler.GetMySchedule)
		}

		// Patient health profile
		recordRoutes := private.Group("/health-records")
		{
			recordRoutes.GET("", recordHandler.List)
			recordRoutes.POST("", patientOnly, recordHandler.Create)
			recordRoutes.PUT("/:id", patientOnly, recordHandler.Update)
			recordRoutes.DELETE("/:id", patientOnly, recordHandler.Delete)
		}
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
