package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type ChannelService interface {
	Create(ctx context.Context, creatorID, teamID uuid.UUID, name, chType string, isDefault bool) (*domain.Channel, error)
	Get(ctx context.Context, actorID, channelID uuid.UUID) (*domain.Channel, error)
	ListForTeam(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.Channel, error)
	ListMine(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.Channel, error)
	Delete(ctx context.Context, actorID, channelID uuid.UUID) error

	Join(ctx context.Context, userID, channelID uuid.UUID) error
	Leave(ctx context.Context, userID, channelID uuid.UUID) error
	AddMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error
}

type channelService struct {
	channelRepo repository.ChannelRepository
	teamRepo    repository.TeamRepository
	registry    *realtime.Registry
	notifier    Notifier
	log         logger.Logger
}

func NewChannelService(
	channelRepo repository.ChannelRepository,
	teamRepo repository.TeamRepository,
	registry *realtime.Registry,
	notifier Notifier,
	log logger.Logger,
) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		teamRepo:    teamRepo,
		registry:    registry,
		notifier:    notifier,
		log:         log,
	}
}

func (s *channelService) Create(ctx context.Context, creatorID, teamID uuid.UUID, name, chType string, isDefault bool) (*domain.Channel, error) {
	if name == "" {
		return nil, apperrors.Invalid("channel name is required")
	}
	if chType == "" {
		chType = domain.ChannelTypePublic
	}
	if !domain.ValidChannelType(chType) {
		return nil, apperrors.Invalid("invalid channel type")
	}
	member, err := s.teamRepo.GetMember(ctx, teamID, creatorID)
	if err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	if isDefault && member.Role != domain.TeamRoleOwner {
		return nil, apperrors.Forbidden("only the team owner may create default channels")
	}

	channel := &domain.Channel{
		ID:        uuid.New(),
		TeamID:    teamID,
		Name:      name,
		Type:      chType,
		IsDefault: isDefault,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err
	}

	if isDefault {
		// Every team member was joined inside the create transaction; their
		// live sessions need the room too.
		members, err := s.teamRepo.ListMembers(ctx, teamID)
		if err != nil {
			s.log.Warn("failed to list team members after channel create", "error", err)
		} else {
			for _, m := range members {
				s.registry.JoinUser(m.UserID, realtime.ChannelRoom(channel.ID))
			}
		}
	} else {
		s.registry.JoinUser(creatorID, realtime.ChannelRoom(channel.ID))
	}
	return channel, nil
}

func (s *channelService) Get(ctx context.Context, actorID, channelID uuid.UUID) (*domain.Channel, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.teamRepo.GetMember(ctx, channel.TeamID, actorID); err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	return channel, nil
}

func (s *channelService) ListForTeam(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.Channel, error) {
	if _, err := s.teamRepo.GetMember(ctx, teamID, actorID); err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	return s.channelRepo.ListForTeam(ctx, teamID)
}

func (s *channelService) ListMine(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.Channel, error) {
	if _, err := s.teamRepo.GetMember(ctx, teamID, actorID); err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	return s.channelRepo.ListForUser(ctx, teamID, actorID)
}

func (s *channelService) Delete(ctx context.Context, actorID, channelID uuid.UUID) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.IsDefault {
		return apperrors.Forbidden("default channels cannot be deleted")
	}
	member, err := s.teamRepo.GetMember(ctx, channel.TeamID, actorID)
	if err != nil {
		return apperrors.Forbidden("not a member of this team")
	}
	if member.Role != domain.TeamRoleOwner && channel.CreatedBy != actorID {
		return apperrors.Forbidden("only the team owner or the creator may delete a channel")
	}
	return s.channelRepo.Delete(ctx, channelID)
}

func (s *channelService) Join(ctx context.Context, userID, channelID uuid.UUID) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if _, err := s.teamRepo.GetMember(ctx, channel.TeamID, userID); err != nil {
		return apperrors.Forbidden("not a member of this team")
	}
	// Private channels are invitation-only.
	if channel.Type == domain.ChannelTypePrivate {
		return apperrors.Forbidden("private channels require an invitation")
	}

	if err := s.channelRepo.AddMember(ctx, &domain.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}); err != nil {
		return err
	}
	s.registry.JoinUser(userID, realtime.ChannelRoom(channelID))
	return nil
}

func (s *channelService) Leave(ctx context.Context, userID, channelID uuid.UUID) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.IsDefault {
		return apperrors.Forbidden("default channels cannot be left")
	}
	if err := s.channelRepo.RemoveMember(ctx, channelID, userID); err != nil {
		return err
	}
	s.registry.LeaveUser(userID, realtime.ChannelRoom(channelID))
	return nil
}

func (s *channelService) AddMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if _, err := s.channelRepo.GetMember(ctx, channelID, actorID); err != nil {
		return apperrors.Forbidden("not a member of this channel")
	}
	// Only team members can ever be added.
	if _, err := s.teamRepo.GetMember(ctx, channel.TeamID, userID); err != nil {
		return apperrors.Invalid("user is not a member of this team")
	}

	if err := s.channelRepo.AddMember(ctx, &domain.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}); err != nil {
		return err
	}
	s.registry.JoinUser(userID, realtime.ChannelRoom(channelID))
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, domain.NotificationChannelAdded, "Added to channel", channel.Name, map[string]any{
			"channel_id": channelID,
		})
	}
	return nil
}
