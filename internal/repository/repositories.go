package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type Repositories struct {
	User         UserRepository
	Team         TeamRepository
	Chat         ChatRepository
	Group        GroupRepository
	Channel      ChannelRepository
	Message      MessageRepository
	Notification NotificationRepository
	Presence     PresenceRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db, log),
		Team:         NewTeamRepository(db, log),
		Chat:         NewChatRepository(db, log),
		Group:        NewGroupRepository(db, log),
		Channel:      NewChannelRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		Presence:     NewPresenceRepository(rdb, log),
		RateLimit:    NewRateLimitRepository(rdb, log),
	}
}
