package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type TeamRepository interface {
	// Create inserts the team, its owner membership, and the default
	// "general" channel with the owner joined, all in one transaction.
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error)
	// Occupancy counts current members plus unexpired pending invites, the
	// quantity the capacity gate compares against the member limit.
	Occupancy(ctx context.Context, teamID uuid.UUID) (members int, pendingInvites int, err error)

	CreateInvite(ctx context.Context, invite *domain.TeamInvite) error
	GetInviteByToken(ctx context.Context, token string) (*domain.TeamInvite, error)
	ListInvites(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamInvite, error)
	// AcceptInvite consumes the invite exactly once and, atomically, adds
	// the user to the team and to every default channel. It returns the ids
	// of the default channels joined so live sessions can be subscribed.
	AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) ([]uuid.UUID, error)
}

type teamRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewTeamRepository(db *pgxpool.Pool, log logger.Logger) TeamRepository {
	return &teamRepository{db: db, log: log}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("failed to begin tx", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO teams (id, name, owner_id, member_limit, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, team.ID, team.Name, team.OwnerID, team.MemberLimit, team.CreatedAt); err != nil {
		r.log.Error("failed to create team", "error", err)
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, team.ID, team.OwnerID, domain.TeamRoleOwner, team.CreatedAt); err != nil {
		return err
	}

	channelID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO channels (id, team_id, name, type, is_default, created_by, created_at)
		VALUES ($1, $2, 'general', $3, true, $4, $5)
	`, channelID, team.ID, domain.ChannelTypePublic, team.OwnerID, team.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO channel_members (channel_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`, channelID, team.OwnerID, team.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *teamRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	team := &domain.Team{}
	err := withRetry(ctx, r.log, "team.get", func() error {
		return r.db.QueryRow(ctx, `
			SELECT id, name, owner_id, member_limit, created_at FROM teams WHERE id = $1
		`, id).Scan(&team.ID, &team.Name, &team.OwnerID, &team.MemberLimit, &team.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("team not found")
		}
		r.log.Error("failed to get team", "error", err, "team_id", id)
		return nil, err
	}
	return team, nil
}

func (r *teamRepository) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error) {
	member := &domain.TeamMember{}
	err := r.db.QueryRow(ctx, `
		SELECT team_id, user_id, role, joined_at
		FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&member.TeamID, &member.UserID, &member.Role, &member.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("team member not found")
		}
		r.log.Error("failed to get team member", "error", err)
		return nil, err
	}
	return member, nil
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT team_id, user_id, role, joined_at
		FROM team_members WHERE team_id = $1 ORDER BY joined_at
	`, teamID)
	if err != nil {
		r.log.Error("failed to list team members", "error", err)
		return nil, err
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		m := &domain.TeamMember{}
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *teamRepository) Occupancy(ctx context.Context, teamID uuid.UUID) (int, int, error) {
	var members, pending int
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM team_members WHERE team_id = $1),
			(SELECT COUNT(*) FROM team_invites
			 WHERE team_id = $1 AND accepted_at IS NULL
			   AND (expires_at IS NULL OR expires_at > now()))
	`, teamID).Scan(&members, &pending)
	if err != nil {
		r.log.Error("failed to count occupancy", "error", err, "team_id", teamID)
		return 0, 0, err
	}
	return members, pending, nil
}

func (r *teamRepository) CreateInvite(ctx context.Context, invite *domain.TeamInvite) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO team_invites (id, team_id, email, token, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, invite.ID, invite.TeamID, invite.Email, invite.Token, invite.InvitedBy, invite.ExpiresAt, invite.CreatedAt)
	if err != nil {
		r.log.Error("failed to create invite", "error", err)
	}
	return err
}

func (r *teamRepository) GetInviteByToken(ctx context.Context, token string) (*domain.TeamInvite, error) {
	invite := &domain.TeamInvite{}
	err := r.db.QueryRow(ctx, `
		SELECT id, team_id, email, token, invited_by, expires_at, accepted_at, created_at
		FROM team_invites WHERE token = $1
	`, token).Scan(
		&invite.ID, &invite.TeamID, &invite.Email, &invite.Token,
		&invite.InvitedBy, &invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("invite not found")
		}
		r.log.Error("failed to get invite", "error", err)
		return nil, err
	}
	return invite, nil
}

func (r *teamRepository) ListInvites(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamInvite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, team_id, email, token, invited_by, expires_at, accepted_at, created_at
		FROM team_invites WHERE team_id = $1 ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		r.log.Error("failed to list invites", "error", err)
		return nil, err
	}
	defer rows.Close()

	var invites []*domain.TeamInvite
	for rows.Next() {
		i := &domain.TeamInvite{}
		if err := rows.Scan(&i.ID, &i.TeamID, &i.Email, &i.Token, &i.InvitedBy, &i.ExpiresAt, &i.AcceptedAt, &i.CreatedAt); err != nil {
			return nil, err
		}
		invites = append(invites, i)
	}
	return invites, rows.Err()
}

func (r *teamRepository) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("failed to begin tx", "error", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	// accepted_at IS NULL guard consumes the invite exactly once.
	var teamID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE team_invites SET accepted_at = $2
		WHERE id = $1 AND accepted_at IS NULL
		RETURNING team_id
	`, inviteID, time.Now()).Scan(&teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Conflict("invite already accepted")
		}
		r.log.Error("failed to consume invite", "error", err, "invite_id", inviteID)
		return nil, err
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, teamID, userID, domain.TeamRoleMember, now); err != nil {
		return nil, err
	}

	// Default-channel membership is re-created automatically whenever a
	// member joins the team.
	rows, err := tx.Query(ctx, `
		INSERT INTO channel_members (channel_id, user_id, joined_at)
		SELECT id, $2, $3 FROM channels WHERE team_id = $1 AND is_default = true
		ON CONFLICT (channel_id, user_id) DO NOTHING
		RETURNING channel_id
	`, teamID, userID, now)
	if err != nil {
		return nil, err
	}
	var channelIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		channelIDs = append(channelIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return channelIDs, nil
}
