package handler

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Chat         *ChatHandler
	Message      *MessageHandler
	Group        *GroupHandler
	Team         *TeamHandler
	Channel      *ChannelHandler
	Notification *NotificationHandler
	Presence     *PresenceHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	repos *repository.Repositories,
	registry *realtime.Registry,
	db *pgxpool.Pool,
	rdb *redis.Client,
	cfg *config.Config,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(db, rdb),
		Auth:         NewAuthHandler(services.Auth, log),
		User:         NewUserHandler(services.User, log),
		Chat:         NewChatHandler(repos.Chat, log),
		Message:      NewMessageHandler(services.Message, log),
		Group:        NewGroupHandler(services.Group, log),
		Team:         NewTeamHandler(services.Team, log),
		Channel:      NewChannelHandler(services.Channel, log),
		Notification: NewNotificationHandler(services.Notification, log),
		Presence:     NewPresenceHandler(services.Presence, log),
		WebSocket: NewWebSocketHandler(
			services.Auth,
			services.Membership,
			services.Message,
			services.Presence,
			repos,
			registry,
			cfg.Realtime,
			log,
		),
	}
}
