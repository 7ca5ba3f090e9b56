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

const inviteTTL = 7 * 24 * time.Hour

type TeamService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string, memberLimit int) (*domain.Team, error)
	Get(ctx context.Context, actorID, teamID uuid.UUID) (*domain.Team, error)
	ListMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.TeamMember, error)

	// Invite runs the capacity gate: members plus pending unexpired invites
	// must stay below the member limit.
	Invite(ctx context.Context, actorID, teamID uuid.UUID, email string) (*domain.TeamInvite, error)
	ListInvites(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.TeamInvite, error)
	// AcceptInvite re-checks capacity at acceptance time; the reservation a
	// pending invite holds is not a guarantee once it has expired.
	AcceptInvite(ctx context.Context, userID uuid.UUID, token string) (*domain.Team, error)
}

type teamService struct {
	teamRepo   repository.TeamRepository
	userRepo   repository.UserRepository
	registry   *realtime.Registry
	notifier   Notifier
	defaultLim int
	log        logger.Logger
}

func NewTeamService(
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	registry *realtime.Registry,
	notifier Notifier,
	defaultMemberLimit int,
	log logger.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		registry:   registry,
		notifier:   notifier,
		defaultLim: defaultMemberLimit,
		log:        log,
	}
}

func (s *teamService) Create(ctx context.Context, ownerID uuid.UUID, name string, memberLimit int) (*domain.Team, error) {
	if name == "" {
		return nil, apperrors.Invalid("team name is required")
	}
	if memberLimit <= 0 {
		memberLimit = s.defaultLim
	}
	team := &domain.Team{
		ID:          uuid.New(),
		Name:        name,
		OwnerID:     ownerID,
		MemberLimit: memberLimit,
		CreatedAt:   time.Now(),
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateCurrentTeam(ctx, ownerID, &team.ID); err != nil {
		s.log.Warn("failed to set current team", "user_id", ownerID, "error", err)
	}
	return team, nil
}

func (s *teamService) Get(ctx context.Context, actorID, teamID uuid.UUID) (*domain.Team, error) {
	if _, err := s.teamRepo.GetMember(ctx, teamID, actorID); err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	return s.teamRepo.GetByID(ctx, teamID)
}

func (s *teamService) ListMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	if _, err := s.teamRepo.GetMember(ctx, teamID, actorID); err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	return s.teamRepo.ListMembers(ctx, teamID)
}

func (s *teamService) Invite(ctx context.Context, actorID, teamID uuid.UUID, email string) (*domain.TeamInvite, error) {
	if email == "" {
		return nil, apperrors.Invalid("email is required")
	}
	member, err := s.teamRepo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	if member.Role != domain.TeamRoleOwner {
		return nil, apperrors.Forbidden("only the team owner may invite")
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCapacity(ctx, team); err != nil {
		return nil, err
	}

	expires := time.Now().Add(inviteTTL)
	invite := &domain.TeamInvite{
		ID:        uuid.New(),
		TeamID:    teamID,
		Email:     email,
		Token:     newToken(),
		InvitedBy: actorID,
		ExpiresAt: &expires,
		CreatedAt: time.Now(),
	}
	if err := s.teamRepo.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}

	// If the invitee already has an account, surface the invite in-app.
	if s.notifier != nil {
		if user, err := s.userRepo.GetByEmail(ctx, email); err == nil {
			s.notifier.Notify(ctx, user.ID, domain.NotificationTeamInvite, "Team invite", team.Name, map[string]any{
				"team_id": teamID,
				"token":   invite.Token,
			})
		}
	}
	return invite, nil
}

func (s *teamService) ListInvites(ctx context.Context, actorID, teamID uuid.UUID) ([]*domain.TeamInvite, error) {
	member, err := s.teamRepo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return nil, apperrors.Forbidden("not a member of this team")
	}
	if member.Role != domain.TeamRoleOwner {
		return nil, apperrors.Forbidden("only the team owner may list invites")
	}
	return s.teamRepo.ListInvites(ctx, teamID)
}

func (s *teamService) AcceptInvite(ctx context.Context, userID uuid.UUID, token string) (*domain.Team, error) {
	invite, err := s.teamRepo.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Accepted() {
		return nil, apperrors.Conflict("invite already accepted")
	}
	if invite.Expired(time.Now()) {
		return nil, apperrors.NotFound("invite has expired")
	}

	team, err := s.teamRepo.GetByID(ctx, invite.TeamID)
	if err != nil {
		return nil, err
	}
	// Other invites may have been accepted since this one was issued, so the
	// gate runs again here. This invite holds its own pending reservation, so
	// only settled members count against the limit.
	members, _, err := s.teamRepo.Occupancy(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	if members >= team.MemberLimit {
		return nil, apperrors.Capacity("team member limit reached", members, team.MemberLimit)
	}

	channelIDs, err := s.teamRepo.AcceptInvite(ctx, invite.ID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateCurrentTeam(ctx, userID, &team.ID); err != nil {
		s.log.Warn("failed to set current team", "user_id", userID, "error", err)
	}

	// Live sessions start receiving default-channel traffic immediately.
	for _, chID := range channelIDs {
		s.registry.JoinUser(userID, realtime.ChannelRoom(chID))
	}
	return team, nil
}

func (s *teamService) checkCapacity(ctx context.Context, team *domain.Team) error {
	members, pending, err := s.teamRepo.Occupancy(ctx, team.ID)
	if err != nil {
		return err
	}
	occupied := members + pending
	if occupied >= team.MemberLimit {
		return apperrors.Capacity("team member limit reached", occupied, team.MemberLimit)
	}
	return nil
}
