package api

import (
	"log/slog"
	"time"

	"github.com/brainwash-news/newsdesk/internal/api/handlers"
	"github.com/brainwash-news/newsdesk/internal/api/middleware"
	"github.com/brainwash-news/newsdesk/internal/auth"
	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, store media.Store) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("category", service.ValidateCategory)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	ttl := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	authenticator := auth.NewBasicAuthenticator(db, cfg.Auth.JWTSecret, auth.Options{
		TokenDuration: ttl,
		LoginURL:      cfg.Auth.LoginURL,
	})

	// Services
	groupSvc := service.NewGroupService(db)
	permSvc := service.NewPermissionService(db)
	articleSvc := service.NewArticleService(db, groupSvc, store)
	sourceSvc := service.NewSourceService(db, store)
	contactSvc := service.NewContactService(db)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	accountHandler := handlers.NewAccountHandler(db, authenticator, groupSvc, permSvc, int(ttl.Seconds()))
	permHandler := handlers.NewPermissionRequestHandler(db, permSvc)
	articleHandler := handlers.NewArticleHandler(db, articleSvc)
	sourceHandler := handlers.NewSourceHandler(sourceSvc)
	contactHandler := handlers.NewContactHandler(contactSvc)
	adminHandler := handlers.NewAdminHandler(db, groupSvc, permSvc)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", healthHandler.HealthCheck)
		public.GET("/version", handlers.GetVersion)

		public.GET("/user/login", accountHandler.LoginForm)
		public.POST("/user/login", accountHandler.Login)
		public.POST("/user/signup", accountHandler.Signup)
		public.POST("/user/logout", accountHandler.Logout)

		public.GET("/articles", articleHandler.ListArticles)
		public.GET("/articles/:id", articleHandler.GetArticle)

		public.POST("/contact", contactHandler.SubmitContact)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/user/account", accountHandler.Account)

		protected.GET("/news", articleHandler.Home)
		protected.GET("/news/:category", articleHandler.ListByCategory)
		protected.GET("/user/request-permission", permHandler.Form)
		protected.POST("/user/request-permission", permHandler.Submit)

		protected.POST("/articles", middleware.RequireCapability(permSvc, models.PermAddArticle), articleHandler.CreateArticle)
		protected.GET("/articles/:id/edit", middleware.RequireCapability(permSvc, models.PermChangeArticle), articleHandler.EditForm)
		protected.PUT("/articles/:id", middleware.RequireCapability(permSvc, models.PermChangeArticle), articleHandler.UpdateArticle)
		protected.POST("/articles/:id", middleware.RequireCapability(permSvc, models.PermChangeArticle), articleHandler.UpdateArticle)
		protected.DELETE("/articles/:id", articleHandler.DeleteArticle)

		protected.GET("/sources", sourceHandler.ListSources)
		protected.POST("/sources", sourceHandler.CreateSource)
		protected.GET("/sources/:id", sourceHandler.GetSource)
		protected.PUT("/sources/:id", sourceHandler.UpdateSource)
		protected.DELETE("/sources/:id", sourceHandler.DeleteSource)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users/:id/toggle-admin", adminHandler.ToggleAdmin)

			admin.GET("/groups", adminHandler.ListGroups)
			admin.POST("/groups", adminHandler.CreateGroup)
			admin.GET("/groups/:name", adminHandler.GetGroup)
			admin.PUT("/groups/:name/permissions", adminHandler.SetGroupPermissions)
			admin.POST("/groups/:name/members", adminHandler.AddGroupMember)
			admin.DELETE("/groups/:name/members/:user_id", adminHandler.RemoveGroupMember)

			admin.GET("/permissions", adminHandler.ListPermissions)
			admin.GET("/permission-requests", adminHandler.ListPermissionRequests)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/jobs", adminHandler.ListJobs)

			admin.GET("/messages", contactHandler.ListMessages)
			admin.GET("/messages/:id", contactHandler.GetMessage)
			admin.PUT("/messages/:id", contactHandler.UpdateMessage)
			admin.DELETE("/messages/:id", contactHandler.DeleteMessage)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}
