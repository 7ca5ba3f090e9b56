package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type GroupService interface {
	Create(ctx context.Context, creatorID uuid.UUID, name string, avatarURL *string) (*domain.Group, error)
	Get(ctx context.Context, actorID, groupID uuid.UUID) (*domain.Group, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error)
	UpdateSettings(ctx context.Context, actorID, groupID uuid.UUID, name string, avatarURL *string) (*domain.Group, error)
	UpdatePermissions(ctx context.Context, actorID, groupID uuid.UUID, perms domain.PermissionSet) error

	AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error
	ChangeRole(ctx context.Context, actorID, groupID, userID uuid.UUID, role string) error
	ListMembers(ctx context.Context, actorID, groupID uuid.UUID) ([]*domain.GroupMember, error)

	CreateInviteLink(ctx context.Context, actorID, groupID uuid.UUID, expiresAt *time.Time) (*domain.InviteLink, error)
	DeleteInviteLink(ctx context.Context, actorID, groupID, linkID uuid.UUID) error
	// JoinViaLink adds the caller through a reusable invite link, or files a
	// join request when the group requires admin approval.
	JoinViaLink(ctx context.Context, userID uuid.UUID, token string) (*domain.Group, *domain.JoinRequest, error)

	RequestJoin(ctx context.Context, userID, groupID uuid.UUID) (*domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, actorID, groupID uuid.UUID) ([]*domain.JoinRequest, error)
	DecideJoinRequest(ctx context.Context, actorID, requestID uuid.UUID, approve bool) error
}

type groupService struct {
	groupRepo  repository.GroupRepository
	membership MembershipService
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	notifier   Notifier
	log        logger.Logger
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	membership MembershipService,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	notifier Notifier,
	log logger.Logger,
) GroupService {
	return &groupService{
		groupRepo:  groupRepo,
		membership: membership,
		registry:   registry,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
	}
}

func (s *groupService) Create(ctx context.Context, creatorID uuid.UUID, name string, avatarURL *string) (*domain.Group, error) {
	if name == "" {
		return nil, apperrors.Invalid("group name is required")
	}
	group := &domain.Group{
		ID:          uuid.New(),
		Name:        name,
		AvatarURL:   avatarURL,
		CreatedBy:   creatorID,
		Permissions: domain.DefaultPermissions(),
		CreatedAt:   time.Now(),
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	// The creator's live sessions start receiving group traffic right away.
	s.registry.JoinUser(creatorID, realtime.GroupRoom(group.ID))
	return group, nil
}

func (s *groupService) Get(ctx context.Context, actorID, groupID uuid.UUID) (*domain.Group, error) {
	if _, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID)); err != nil {
		return nil, err
	}
	return s.groupRepo.GetByID(ctx, groupID)
}

func (s *groupService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	return s.groupRepo.ListForUser(ctx, userID)
}

func (s *groupService) UpdateSettings(ctx context.Context, actorID, groupID uuid.UUID, name string, avatarURL *string) (*domain.Group, error) {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return nil, err
	}
	if !m.Can(func(p domain.PermissionSet) bool { return p.EditSettings }) {
		return nil, apperrors.Forbidden("editing settings requires admin role")
	}
	if name == "" {
		return nil, apperrors.Invalid("group name is required")
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Name = name
	group.AvatarURL = avatarURL
	if err := s.groupRepo.UpdateSettings(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *groupService) UpdatePermissions(ctx context.Context, actorID, groupID uuid.UUID, perms domain.PermissionSet) error {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return err
	}
	if m.Role != domain.RoleAdmin {
		return apperrors.Forbidden("only admins may change group permissions")
	}
	if err := s.groupRepo.UpdatePermissions(ctx, groupID, perms); err != nil {
		return err
	}

	s.dispatcher.Dispatch(realtime.Event{
		Name:    realtime.EventGroupPermissionsUpdated,
		Rooms:   []realtime.RoomKey{realtime.GroupRoom(groupID)},
		Payload: realtime.GroupPermissionsPayload{GroupID: groupID, Permissions: perms},
	})
	return nil
}

func (s *groupService) AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return err
	}
	if !m.Can(func(p domain.PermissionSet) bool { return p.AddMembers }) {
		return apperrors.Forbidden("adding members is disabled for members")
	}
	return s.admit(ctx, groupID, userID)
}

// admit performs the shared add-member side effects: the participant edge,
// the live-session room join (incremental half of the snapshot model), the
// group_added event, and a notification.
func (s *groupService) admit(ctx context.Context, groupID, userID uuid.UUID) error {
	member := &domain.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     domain.RoleMember,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(ctx, member); err != nil {
		return err
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	s.registry.JoinUser(userID, realtime.GroupRoom(groupID))
	s.dispatcher.DispatchToUser(userID, realtime.EventGroupAdded, realtime.GroupAddedPayload{
		GroupID: groupID,
		Group:   group,
	})
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, domain.NotificationGroupAdded, "Added to group", group.Name, map[string]any{
			"group_id": groupID,
		})
	}
	return nil
}

func (s *groupService) RemoveMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return err
	}
	// Membership changes are admin-gated except self-removal.
	if actorID != userID && m.Role != domain.RoleAdmin && m.Role != domain.RoleModerator {
		return apperrors.Forbidden("removing members requires admin role")
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.registry.LeaveUser(userID, realtime.GroupRoom(groupID))
	return nil
}

func (s *groupService) ChangeRole(ctx context.Context, actorID, groupID, userID uuid.UUID, role string) error {
	if role != domain.RoleAdmin && role != domain.RoleModerator && role != domain.RoleMember {
		return apperrors.Invalid("invalid role")
	}
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return err
	}
	if m.Role != domain.RoleAdmin {
		return apperrors.Forbidden("only admins may change roles")
	}
	return s.groupRepo.UpdateMemberRole(ctx, groupID, userID, role)
}

func (s *groupService) ListMembers(ctx context.Context, actorID, groupID uuid.UUID) ([]*domain.GroupMember, error) {
	if _, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID)); err != nil {
		return nil, err
	}
	return s.groupRepo.ListMembers(ctx, groupID)
}

func (s *groupService) CreateInviteLink(ctx context.Context, actorID, groupID uuid.UUID, expiresAt *time.Time) (*domain.InviteLink, error) {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return nil, err
	}
	if !m.Can(func(p domain.PermissionSet) bool { return p.UseInviteLink }) {
		return nil, apperrors.Forbidden("invite links are disabled for members")
	}

	link := &domain.InviteLink{
		ID:        uuid.New(),
		GroupID:   groupID,
		Token:     newToken(),
		CreatedBy: actorID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.groupRepo.CreateInviteLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *groupService) DeleteInviteLink(ctx context.Context, actorID, groupID, linkID uuid.UUID) error {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return err
	}
	if m.Role != domain.RoleAdmin && m.Role != domain.RoleModerator {
		return apperrors.Forbidden("deleting invite links requires admin role")
	}
	return s.groupRepo.DeleteInviteLink(ctx, linkID)
}

func (s *groupService) JoinViaLink(ctx context.Context, userID uuid.UUID, token string) (*domain.Group, *domain.JoinRequest, error) {
	link, err := s.groupRepo.GetInviteLinkByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if link.Expired(time.Now()) {
		return nil, nil, apperrors.NotFound("invite link has expired")
	}

	group, err := s.groupRepo.GetByID(ctx, link.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if !group.Permissions.UseInviteLink {
		return nil, nil, apperrors.Forbidden("invite links are disabled for this group")
	}

	if _, err := s.groupRepo.GetMember(ctx, group.ID, userID); err == nil {
		return group, nil, nil // already a member, joining is a no-op
	}

	if group.Permissions.AdminApproval {
		req, err := s.fileJoinRequest(ctx, group, userID)
		return group, req, err
	}
	if err := s.admit(ctx, group.ID, userID); err != nil {
		return nil, nil, err
	}
	return group, nil, nil
}

func (s *groupService) RequestJoin(ctx context.Context, userID, groupID uuid.UUID) (*domain.JoinRequest, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.groupRepo.GetMember(ctx, groupID, userID); err == nil {
		return nil, apperrors.Conflict("already a member")
	}
	if !group.Permissions.AdminApproval {
		return nil, apperrors.Invalid("group does not require join approval")
	}
	return s.fileJoinRequest(ctx, group, userID)
}

func (s *groupService) fileJoinRequest(ctx context.Context, group *domain.Group, userID uuid.UUID) (*domain.JoinRequest, error) {
	if existing, err := s.groupRepo.GetPendingJoinRequest(ctx, group.ID, userID); err == nil {
		return existing, nil
	}

	req := &domain.JoinRequest{
		ID:        uuid.New(),
		GroupID:   group.ID,
		UserID:    userID,
		Status:    domain.JoinRequestPending,
		CreatedAt: time.Now(),
	}
	if err := s.groupRepo.CreateJoinRequest(ctx, req); err != nil {
		return nil, err
	}

	// Every admin hears about the pending request.
	if s.notifier != nil {
		members, err := s.groupRepo.ListMembers(ctx, group.ID)
		if err != nil {
			s.log.Warn("failed to list admins for join request", "error", err)
			return req, nil
		}
		for _, m := range members {
			if m.Role == domain.RoleAdmin {
				s.notifier.Notify(ctx, m.UserID, domain.NotificationJoinRequest, "Join request", group.Name, map[string]any{
					"group_id":   group.ID,
					"request_id": req.ID,
					"user_id":    userID,
				})
			}
		}
	}
	return req, nil
}

func (s *groupService) ListJoinRequests(ctx context.Context, actorID, groupID uuid.UUID) ([]*domain.JoinRequest, error) {
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(groupID))
	if err != nil {
		return nil, err
	}
	if m.Role != domain.RoleAdmin && m.Role != domain.RoleModerator {
		return nil, apperrors.Forbidden("listing join requests requires admin role")
	}
	return s.groupRepo.ListJoinRequests(ctx, groupID, domain.JoinRequestPending)
}

func (s *groupService) DecideJoinRequest(ctx context.Context, actorID, requestID uuid.UUID, approve bool) error {
	req, err := s.groupRepo.GetJoinRequest(ctx, requestID)
	if err != nil {
		return err
	}
	m, err := s.membership.RequireMember(ctx, actorID, domain.GroupRef(req.GroupID))
	if err != nil {
		return err
	}
	if m.Role != domain.RoleAdmin {
		return apperrors.Forbidden("only admins may decide join requests")
	}

	status := domain.JoinRequestRejected
	if approve {
		status = domain.JoinRequestApproved
	}
	decided, err := s.groupRepo.DecideJoinRequest(ctx, requestID, status, actorID)
	if err != nil {
		return err
	}
	if !decided {
		// Terminal states are never revisited.
		return apperrors.Conflict("join request already decided")
	}

	if approve {
		if err := s.admit(ctx, req.GroupID, req.UserID); err != nil {
			return err
		}
	} else if s.notifier != nil {
		s.notifier.Notify(ctx, req.UserID, domain.NotificationJoinRejected, "Join request rejected", "", map[string]any{
			"group_id": req.GroupID,
		})
	}
	return nil
}

func newToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
