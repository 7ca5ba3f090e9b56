package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/queue"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// Notifier is the fire-and-forget notification sink. Notify must never fail
// the operation that triggered it: every failure inside is caught and
// logged.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, ntype, title, message string, data map[string]any)
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

type notificationService struct {
	repo       repository.NotificationRepository
	dispatcher *realtime.Dispatcher
	enqueuer   queue.Enqueuer
	log        logger.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	dispatcher *realtime.Dispatcher,
	enqueuer queue.Enqueuer,
	log logger.Logger,
) NotificationService {
	return &notificationService{repo: repo, dispatcher: dispatcher, enqueuer: enqueuer, log: log}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, ntype, title, message string, data map[string]any) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error("failed to persist notification", "error", err, "user_id", userID, "type", ntype)
		return
	}

	s.dispatcher.DispatchToUser(userID, realtime.EventNotification, realtime.NotificationPayload{Notification: n})

	if s.enqueuer != nil {
		err := s.enqueuer.EnqueuePush(ctx, queue.PushPayload{
			NotificationID: n.ID,
			UserID:         userID,
			Title:          title,
			Message:        message,
		})
		if err != nil {
			s.log.Warn("failed to enqueue push", "error", err, "notification_id", n.ID)
		}
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
