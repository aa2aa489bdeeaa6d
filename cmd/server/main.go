package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/config"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/dispatch"
	"github.com/yukikurage/taskboard-api/internal/handlers"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/realtime"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/visibility"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("taskboard_session", store))

	// Repositories and the visibility evaluator share one database handle.
	db := database.GetDB()
	evaluator := visibility.NewEvaluator(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db, evaluator)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Realtime channel registry and the event fanout dispatcher.
	registry := realtime.NewRegistry()
	defer registry.Close()
	dispatcher := dispatch.NewDispatcher(
		userRepo,
		taskRepo,
		projectRepo,
		notificationRepo,
		settingsRepo,
		evaluator,
		registry,
		cfg.DispatchWorkers,
	)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(projectRepo, dispatcher)
	taskService := services.NewTaskService(taskRepo, projectRepo, dispatcher)
	notificationService := services.NewNotificationService(notificationRepo)
	settingsService := services.NewSettingsService(settingsRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	wsHandler := handlers.NewWSHandler(cfg.ChannelSecret, registry, evaluator, userRepo, taskRepo)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Taskboard API is running",
		})
	})

	// Websocket endpoint; authentication happens in-band via channel token.
	r.GET("/ws", wsHandler.Serve)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.POST("/join", projectHandler.JoinProject)
			projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
			projects.PUT("/:id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.UpdateProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.DeleteProject)
			projects.POST("/:id/regenerate-code", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.RegenerateInviteCode)
			projects.DELETE("/:id/members/:user_id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.RemoveMember)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.POST("/:id/assign", middleware.RequireTaskAccess(), taskHandler.AssignTask)
			tasks.POST("/:id/unassign", middleware.RequireTaskAccess(), taskHandler.UnassignTask)
			tasks.POST("/:id/comments", middleware.RequireTaskAccess(), taskHandler.Comment)
		}

		// Notification routes (protected, always scoped to the session user)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.CountUnread)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.DeleteNotification)
		}

		// Notification settings routes (protected)
		settings := api.Group("/settings/notifications")
		settings.Use(middleware.RequireAuth())
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PATCH("", settingsHandler.UpdateSettings)
			settings.POST("/mute/:kind/:target_id", settingsHandler.ToggleMute)
		}

		// Channel token for websocket authentication (protected)
		api.GET("/ws/token", middleware.RequireAuth(), wsHandler.ChannelToken)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
