package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	UpdatePermissions(ctx context.Context, id uuid.UUID, perms domain.PermissionSet) error
	UpdateSettings(ctx context.Context, group *domain.Group) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error)

	AddMember(ctx context.Context, member *domain.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.GroupMember, error)
	UpdateMemberRole(ctx context.Context, groupID, userID uuid.UUID, role string) error

	CreateJoinRequest(ctx context.Context, req *domain.JoinRequest) error
	GetJoinRequest(ctx context.Context, id uuid.UUID) (*domain.JoinRequest, error)
	GetPendingJoinRequest(ctx context.Context, groupID, userID uuid.UUID) (*domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, groupID uuid.UUID, status string) ([]*domain.JoinRequest, error)
	// DecideJoinRequest transitions pending → approved|rejected exactly once;
	// it reports false when the request was already decided.
	DecideJoinRequest(ctx context.Context, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error)

	CreateInviteLink(ctx context.Context, link *domain.InviteLink) error
	GetInviteLinkByToken(ctx context.Context, token string) (*domain.InviteLink, error)
	DeleteInviteLink(ctx context.Context, id uuid.UUID) error
}

type groupRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewGroupRepository(db *pgxpool.Pool, log logger.Logger) GroupRepository {
	return &groupRepository{db: db, log: log}
}

// Create inserts the group and its creator as admin in one transaction.
func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	perms, err := json.Marshal(group.Permissions)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("failed to begin tx", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO groups (id, name, avatar_url, created_by, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, group.ID, group.Name, group.AvatarURL, group.CreatedBy, perms, group.CreatedAt); err != nil {
		r.log.Error("failed to create group", "error", err)
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, group.ID, group.CreatedBy, domain.RoleAdmin, group.CreatedAt); err != nil {
		r.log.Error("failed to add group creator", "error", err)
		return err
	}

	return tx.Commit(ctx)
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	group := &domain.Group{}
	var perms []byte
	err := withRetry(ctx, r.log, "group.get", func() error {
		return r.db.QueryRow(ctx, `
			SELECT id, name, avatar_url, created_by, permissions, created_at
			FROM groups WHERE id = $1
		`, id).Scan(&group.ID, &group.Name, &group.AvatarURL, &group.CreatedBy, &perms, &group.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("group not found")
		}
		r.log.Error("failed to get group", "error", err, "group_id", id)
		return nil, err
	}
	if err := json.Unmarshal(perms, &group.Permissions); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *groupRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permSet domain.PermissionSet) error {
	perms, err := json.Marshal(permSet)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE groups SET permissions = $2 WHERE id = $1`, id, perms)
	if err != nil {
		r.log.Error("failed to update permissions", "error", err, "group_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("group not found")
	}
	return nil
}

func (r *groupRepository) UpdateSettings(ctx context.Context, group *domain.Group) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE groups SET name = $2, avatar_url = $3 WHERE id = $1
	`, group.ID, group.Name, group.AvatarURL)
	if err != nil {
		r.log.Error("failed to update group", "error", err, "group_id", group.ID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("group not found")
	}
	return nil
}

func (r *groupRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.avatar_url, g.created_by, g.permissions, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		r.log.Error("failed to list groups", "error", err)
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g := &domain.Group{}
		var perms []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.AvatarURL, &g.CreatedBy, &perms, &g.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(perms, &g.Permissions); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) AddMember(ctx context.Context, member *domain.GroupMember) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at, is_muted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, member.GroupID, member.UserID, member.Role, member.JoinedAt, member.IsMuted)
	if err != nil {
		r.log.Error("failed to add group member", "error", err)
	}
	return err
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		r.log.Error("failed to remove group member", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("group member not found")
	}
	return nil
}

func (r *groupRepository) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	member := &domain.GroupMember{}
	err := r.db.QueryRow(ctx, `
		SELECT group_id, user_id, role, joined_at, is_muted, last_read_at
		FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(
		&member.GroupID, &member.UserID, &member.Role, &member.JoinedAt, &member.IsMuted, &member.LastReadAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("group member not found")
		}
		r.log.Error("failed to get group member", "error", err)
		return nil, err
	}
	return member, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.GroupMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT group_id, user_id, role, joined_at, is_muted, last_read_at
		FROM group_members WHERE group_id = $1 ORDER BY joined_at
	`, groupID)
	if err != nil {
		r.log.Error("failed to list group members", "error", err)
		return nil, err
	}
	defer rows.Close()

	var members []*domain.GroupMember
	for rows.Next() {
		m := &domain.GroupMember{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.IsMuted, &m.LastReadAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *groupRepository) UpdateMemberRole(ctx context.Context, groupID, userID uuid.UUID, role string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE group_members SET role = $3 WHERE group_id = $1 AND user_id = $2
	`, groupID, userID, role)
	if err != nil {
		r.log.Error("failed to update member role", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("group member not found")
	}
	return nil
}

func (r *groupRepository) CreateJoinRequest(ctx context.Context, req *domain.JoinRequest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO join_requests (id, group_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.GroupID, req.UserID, req.Status, req.CreatedAt)
	if err != nil {
		r.log.Error("failed to create join request", "error", err)
	}
	return err
}

func (r *groupRepository) GetJoinRequest(ctx context.Context, id uuid.UUID) (*domain.JoinRequest, error) {
	req := &domain.JoinRequest{}
	err := r.db.QueryRow(ctx, `
		SELECT id, group_id, user_id, status, decided_by, created_at, decided_at
		FROM join_requests WHERE id = $1
	`, id).Scan(&req.ID, &req.GroupID, &req.UserID, &req.Status, &req.DecidedBy, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("join request not found")
		}
		r.log.Error("failed to get join request", "error", err)
		return nil, err
	}
	return req, nil
}

func (r *groupRepository) GetPendingJoinRequest(ctx context.Context, groupID, userID uuid.UUID) (*domain.JoinRequest, error) {
	req := &domain.JoinRequest{}
	err := r.db.QueryRow(ctx, `
		SELECT id, group_id, user_id, status, decided_by, created_at, decided_at
		FROM join_requests WHERE group_id = $1 AND user_id = $2 AND status = $3
	`, groupID, userID, domain.JoinRequestPending).Scan(
		&req.ID, &req.GroupID, &req.UserID, &req.Status, &req.DecidedBy, &req.CreatedAt, &req.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("join request not found")
		}
		return nil, err
	}
	return req, nil
}

func (r *groupRepository) ListJoinRequests(ctx context.Context, groupID uuid.UUID, status string) ([]*domain.JoinRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, group_id, user_id, status, decided_by, created_at, decided_at
		FROM join_requests WHERE group_id = $1 AND status = $2 ORDER BY created_at
	`, groupID, status)
	if err != nil {
		r.log.Error("failed to list join requests", "error", err)
		return nil, err
	}
	defer rows.Close()

	var reqs []*domain.JoinRequest
	for rows.Next() {
		req := &domain.JoinRequest{}
		if err := rows.Scan(&req.ID, &req.GroupID, &req.UserID, &req.Status, &req.DecidedBy, &req.CreatedAt, &req.DecidedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *groupRepository) DecideJoinRequest(ctx context.Context, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error) {
	// status = 'pending' guard keeps decided requests terminal even under
	// two concurrent admins deciding the same request.
	tag, err := r.db.Exec(ctx, `
		UPDATE join_requests
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1 AND status = $5
	`, id, status, decidedBy, time.Now(), domain.JoinRequestPending)
	if err != nil {
		r.log.Error("failed to decide join request", "error", err, "request_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *groupRepository) CreateInviteLink(ctx context.Context, link *domain.InviteLink) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invite_links (id, group_id, token, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, link.ID, link.GroupID, link.Token, link.CreatedBy, link.ExpiresAt, link.CreatedAt)
	if err != nil {
		r.log.Error("failed to create invite link", "error", err)
	}
	return err
}

func (r *groupRepository) GetInviteLinkByToken(ctx context.Context, token string) (*domain.InviteLink, error) {
	link := &domain.InviteLink{}
	err := r.db.QueryRow(ctx, `
		SELECT id, group_id, token, created_by, expires_at, created_at
		FROM invite_links WHERE token = $1
	`, token).Scan(&link.ID, &link.GroupID, &link.Token, &link.CreatedBy, &link.ExpiresAt, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("invite link not found")
		}
		r.log.Error("failed to get invite link", "error", err)
		return nil, err
	}
	return link, nil
}

func (r *groupRepository) DeleteInviteLink(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invite_links WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete invite link", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("invite link not found")
	}
	return nil
}
