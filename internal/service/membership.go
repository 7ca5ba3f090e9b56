package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// MembershipService answers "may this actor touch this conversation" for
// all three conversation kinds. It is a pure read: membership mutations go
// through the group/channel/team services, which re-validate before writing.
type MembershipService interface {
	Resolve(ctx context.Context, actorID uuid.UUID, ref domain.ConversationRef) (domain.Membership, error)
	// RequireMember resolves and fails closed with a Forbidden error when the
	// actor is not a member.
	RequireMember(ctx context.Context, actorID uuid.UUID, ref domain.ConversationRef) (domain.Membership, error)
	// MemberUserIDs lists the user ids currently participating in the
	// conversation; used to target notifications.
	MemberUserIDs(ctx context.Context, ref domain.ConversationRef) ([]uuid.UUID, error)
}

type membershipService struct {
	chatRepo    repository.ChatRepository
	groupRepo   repository.GroupRepository
	channelRepo repository.ChannelRepository
	teamRepo    repository.TeamRepository
	log         logger.Logger
}

func NewMembershipService(
	chatRepo repository.ChatRepository,
	groupRepo repository.GroupRepository,
	channelRepo repository.ChannelRepository,
	teamRepo repository.TeamRepository,
	log logger.Logger,
) MembershipService {
	return &membershipService{
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		channelRepo: channelRepo,
		teamRepo:    teamRepo,
		log:         log,
	}
}

func (s *membershipService) Resolve(ctx context.Context, actorID uuid.UUID, ref domain.ConversationRef) (domain.Membership, error) {
	switch ref.Kind {
	case domain.KindChat:
		return s.resolveChat(ctx, actorID, ref.ID)
	case domain.KindGroup:
		return s.resolveGroup(ctx, actorID, ref.ID)
	case domain.KindChannel:
		return s.resolveChannel(ctx, actorID, ref.ID)
	default:
		return domain.Membership{}, apperrors.Invalid("unknown conversation kind")
	}
}

func (s *membershipService) RequireMember(ctx context.Context, actorID uuid.UUID, ref domain.ConversationRef) (domain.Membership, error) {
	m, err := s.Resolve(ctx, actorID, ref)
	if err != nil {
		return domain.Membership{}, err
	}
	if !m.IsMember {
		return domain.Membership{}, apperrors.Forbidden("not a member of this conversation")
	}
	return m, nil
}

func (s *membershipService) resolveChat(ctx context.Context, actorID, chatID uuid.UUID) (domain.Membership, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return domain.Membership{}, err
	}
	// A direct chat's membership is exactly its two fixed participants.
	return domain.Membership{IsMember: chat.HasUser(actorID)}, nil
}

func (s *membershipService) resolveGroup(ctx context.Context, actorID, groupID uuid.UUID) (domain.Membership, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return domain.Membership{}, err
	}
	member, err := s.groupRepo.GetMember(ctx, groupID, actorID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return domain.Membership{}, nil
		}
		return domain.Membership{}, err
	}
	perms := group.Permissions
	return domain.Membership{IsMember: true, Role: member.Role, Permissions: &perms}, nil
}

func (s *membershipService) resolveChannel(ctx context.Context, actorID, channelID uuid.UUID) (domain.Membership, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return domain.Membership{}, err
	}

	// Channel membership requires team membership first; an edge without it
	// never grants access.
	if _, err := s.teamRepo.GetMember(ctx, channel.TeamID, actorID); err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return domain.Membership{}, nil
		}
		return domain.Membership{}, err
	}

	if _, err := s.channelRepo.GetMember(ctx, channelID, actorID); err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			// Default channels admit every team member even when the edge
			// has not materialized yet.
			if channel.IsDefault {
				return domain.Membership{IsMember: true, Role: domain.RoleMember}, nil
			}
			return domain.Membership{}, nil
		}
		return domain.Membership{}, err
	}
	return domain.Membership{IsMember: true, Role: domain.RoleMember}, nil
}

func (s *membershipService) MemberUserIDs(ctx context.Context, ref domain.ConversationRef) ([]uuid.UUID, error) {
	switch ref.Kind {
	case domain.KindChat:
		chat, err := s.chatRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{chat.UserAID, chat.UserBID}, nil
	case domain.KindGroup:
		members, err := s.groupRepo.ListMembers(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		return ids, nil
	case domain.KindChannel:
		members, err := s.channelRepo.ListMembers(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		return ids, nil
	default:
		return nil, apperrors.Invalid("unknown conversation kind")
	}
}
