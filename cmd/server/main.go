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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/handler"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/middleware"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/queue"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, appLogger)

	pushClient := queue.NewClient(cfg.Redis, appLogger)
	defer pushClient.Close()

	services := service.NewServices(repos, cfg, registry, dispatcher, pushClient, appLogger)

	// Push worker runs in-process alongside the API.
	pushServer := queue.NewServer(cfg.Redis, appLogger)
	go func() {
		if err := pushServer.Run(queue.NewMux(repos.User, appLogger)); err != nil {
			appLogger.Error("Push worker stopped", "error", err)
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, repos, registry, dbPool, rdb, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	pushServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/ready", handlers.Health.Ready)

	// WebSocket endpoint authenticates via query token during the handshake.
	router.GET("/ws", handlers.WebSocket.Connect)

	v1 := router.Group("/api/v1")
	{
		authLimit := rateLimitMiddleware.Limit("auth", 20, time.Minute)
		public := v1.Group("/auth")
		{
			public.POST("/register", authLimit, handlers.Auth.Register)
			public.POST("/login", authLimit, handlers.Auth.Login)
			public.POST("/refresh", authLimit, handlers.Auth.RefreshToken)
			public.POST("/logout", handlers.Auth.Logout)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			users := protected.Group("/users")
			{
				users.GET("/me", handlers.User.GetMe)
				users.PUT("/me", handlers.User.UpdateMe)
				users.PUT("/me/status", handlers.User.UpdateStatus)
				users.PUT("/me/team", handlers.User.SwitchTeam)
				users.GET("/me/devices", handlers.User.ListDevices)
				users.POST("/me/devices", handlers.User.RegisterDevice)
				users.DELETE("/me/devices/:deviceId", handlers.User.RemoveDevice)
			}

			chats := protected.Group("/chats")
			{
				chats.GET("", handlers.Chat.List)
				chats.POST("", handlers.Chat.Open)
			}

			messages := protected.Group("/messages")
			{
				messages.POST("", handlers.Message.Send)
			}

			conversations := protected.Group("/conversations/:kind/:id")
			{
				conversations.GET("/messages", handlers.Message.Page)
				conversations.POST("/seen", handlers.Message.MarkSeen)
				conversations.GET("/unseen", handlers.Message.CountUnseen)
			}

			groups := protected.Group("/groups")
			{
				groups.POST("", handlers.Group.Create)
				groups.GET("", handlers.Group.List)
				groups.GET("/:id", handlers.Group.Get)
				groups.PUT("/:id", handlers.Group.UpdateSettings)
				groups.PUT("/:id/permissions", handlers.Group.UpdatePermissions)
				groups.GET("/:id/members", handlers.Group.ListMembers)
				groups.POST("/:id/members", handlers.Group.AddMember)
				groups.DELETE("/:id/members/:userId", handlers.Group.RemoveMember)
				groups.POST("/:id/leave", handlers.Group.Leave)
				groups.PUT("/:id/roles", handlers.Group.ChangeRole)
				groups.POST("/:id/invite-links", handlers.Group.CreateInviteLink)
				groups.DELETE("/:id/invite-links/:linkId", handlers.Group.DeleteInviteLink)
				groups.POST("/join", handlers.Group.JoinViaLink)
				groups.POST("/:id/join-requests", handlers.Group.RequestJoin)
				groups.GET("/:id/join-requests", handlers.Group.ListJoinRequests)
				groups.POST("/join-requests/:requestId/decide", handlers.Group.DecideJoinRequest)
			}

			teams := protected.Group("/teams")
			{
				teams.POST("", handlers.Team.Create)
				teams.GET("/:id", handlers.Team.Get)
				teams.GET("/:id/members", handlers.Team.ListMembers)
				teams.POST("/:id/invites", handlers.Team.Invite)
				teams.GET("/:id/invites", handlers.Team.ListInvites)
				teams.POST("/invites/accept", handlers.Team.AcceptInvite)
				teams.POST("/:id/channels", handlers.Channel.Create)
				teams.GET("/:id/channels", handlers.Channel.ListForTeam)
				teams.GET("/:id/channels/mine", handlers.Channel.ListMine)
			}

			channels := protected.Group("/channels")
			{
				channels.GET("/:id", handlers.Channel.Get)
				channels.DELETE("/:id", handlers.Channel.Delete)
				channels.POST("/:id/join", handlers.Channel.Join)
				channels.POST("/:id/leave", handlers.Channel.Leave)
				channels.POST("/:id/members", handlers.Channel.AddMember)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.Notification.List)
				notifications.GET("/unread", handlers.Notification.CountUnread)
				notifications.PUT("/:id/read", handlers.Notification.MarkRead)
				notifications.PUT("/read-all", handlers.Notification.MarkAllRead)
			}

			presence := protected.Group("/presence")
			{
				presence.GET("/online", handlers.Presence.Online)
				presence.GET("/:userId", handlers.Presence.IsOnline)
			}
		}
	}

	return router
}
