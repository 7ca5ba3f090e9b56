package service

import (
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/queue"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type Services struct {
	Auth         AuthService
	User         UserService
	Membership   MembershipService
	Message      MessageService
	Group        GroupService
	Team         TeamService
	Channel      ChannelService
	Notification NotificationService
	Presence     PresenceService
	RateLimit    RateLimitService
}

func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	enqueuer queue.Enqueuer,
	log logger.Logger,
) *Services {
	membership := NewMembershipService(repos.Chat, repos.Group, repos.Channel, repos.Team, log)
	notification := NewNotificationService(repos.Notification, dispatcher, enqueuer, log)

	return &Services{
		Auth:         NewAuthService(repos.User, cfg.JWT, log),
		User:         NewUserService(repos.User, repos.Team, log),
		Membership:   membership,
		Message:      NewMessageService(repos.Message, repos.Chat, repos.User, membership, registry, dispatcher, notification, log),
		Group:        NewGroupService(repos.Group, membership, registry, dispatcher, notification, log),
		Team:         NewTeamService(repos.Team, repos.User, registry, notification, cfg.Team.DefaultMemberLimit, log),
		Channel:      NewChannelService(repos.Channel, repos.Team, registry, notification, log),
		Notification: notification,
		Presence:     NewPresenceService(repos.Presence, registry, dispatcher, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
