package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// PresenceService translates connection-registry edges into presence state:
// the first session of a user broadcasts user_online, the last one leaving
// broadcasts user_offline. Intermediate connects and disconnects of a
// multi-device user are silent.
type PresenceService interface {
	MarkOnline(ctx context.Context, userID uuid.UUID, name string)
	MarkOffline(ctx context.Context, userID uuid.UUID, name string)
	OnlineUsers(ctx context.Context) ([]uuid.UUID, error)
	IsOnline(ctx context.Context, userID uuid.UUID) bool
}

type presenceService struct {
	presenceRepo repository.PresenceRepository
	registry     *realtime.Registry
	dispatcher   *realtime.Dispatcher
	log          logger.Logger
}

func NewPresenceService(
	presenceRepo repository.PresenceRepository,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	log logger.Logger,
) PresenceService {
	return &presenceService{
		presenceRepo: presenceRepo,
		registry:     registry,
		dispatcher:   dispatcher,
		log:          log,
	}
}

func (s *presenceService) MarkOnline(ctx context.Context, userID uuid.UUID, name string) {
	if err := s.presenceRepo.SetOnline(ctx, userID); err != nil {
		s.log.Warn("presence mirror update failed", "user_id", userID, "error", err)
	}
	s.dispatcher.Dispatch(realtime.Event{
		Name:    realtime.EventUserOnline,
		Global:  true,
		Payload: realtime.PresencePayload{UserID: userID, Name: name},
	})
}

func (s *presenceService) MarkOffline(ctx context.Context, userID uuid.UUID, name string) {
	if err := s.presenceRepo.SetOffline(ctx, userID); err != nil {
		s.log.Warn("presence mirror update failed", "user_id", userID, "error", err)
	}
	s.dispatcher.Dispatch(realtime.Event{
		Name:    realtime.EventUserOffline,
		Global:  true,
		Payload: realtime.PresencePayload{UserID: userID, Name: name},
	})
}

func (s *presenceService) OnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	return s.presenceRepo.OnlineUsers(ctx)
}

// IsOnline answers from the in-process registry, the source of truth.
func (s *presenceService) IsOnline(_ context.Context, userID uuid.UUID) bool {
	return s.registry.IsOnline(userID)
}
