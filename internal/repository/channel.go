package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type ChannelRepository interface {
	// Create inserts the channel and its creator membership; for default
	// channels every current team member is joined in the same transaction.
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	ListForTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Channel, error)
	ListForUser(ctx context.Context, teamID, userID uuid.UUID) ([]*domain.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, member *domain.ChannelMember) error
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error
	GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error)
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]*domain.ChannelMember, error)
}

type channelRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChannelRepository(db *pgxpool.Pool, log logger.Logger) ChannelRepository {
	return &channelRepository{db: db, log: log}
}

func (r *channelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("failed to begin tx", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO channels (id, team_id, name, type, is_default, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, channel.ID, channel.TeamID, channel.Name, channel.Type, channel.IsDefault, channel.CreatedBy, channel.CreatedAt); err != nil {
		r.log.Error("failed to create channel", "error", err)
		return err
	}

	if channel.IsDefault {
		// Default channels hold every team member from the start.
		if _, err := tx.Exec(ctx, `
			INSERT INTO channel_members (channel_id, user_id, joined_at)
			SELECT $1, user_id, $2 FROM team_members WHERE team_id = $3
			ON CONFLICT (channel_id, user_id) DO NOTHING
		`, channel.ID, channel.CreatedAt, channel.TeamID); err != nil {
			r.log.Error("failed to auto-join team members", "error", err)
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
			INSERT INTO channel_members (channel_id, user_id, joined_at)
			VALUES ($1, $2, $3)
		`, channel.ID, channel.CreatedBy, channel.CreatedAt); err != nil {
			r.log.Error("failed to add channel creator", "error", err)
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *channelRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	channel := &domain.Channel{}
	err := withRetry(ctx, r.log, "channel.get", func() error {
		return r.db.QueryRow(ctx, `
			SELECT id, team_id, name, type, is_default, created_by, created_at
			FROM channels WHERE id = $1
		`, id).Scan(&channel.ID, &channel.TeamID, &channel.Name, &channel.Type, &channel.IsDefault, &channel.CreatedBy, &channel.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("channel not found")
		}
		r.log.Error("failed to get channel", "error", err, "channel_id", id)
		return nil, err
	}
	return channel, nil
}

func (r *channelRepository) ListForTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Channel, error) {
	return r.list(ctx, `
		SELECT id, team_id, name, type, is_default, created_by, created_at
		FROM channels WHERE team_id = $1 ORDER BY created_at
	`, teamID)
}

func (r *channelRepository) ListForUser(ctx context.Context, teamID, userID uuid.UUID) ([]*domain.Channel, error) {
	return r.list(ctx, `
		SELECT c.id, c.team_id, c.name, c.type, c.is_default, c.created_by, c.created_at
		FROM channels c
		JOIN channel_members m ON m.channel_id = c.id
		WHERE c.team_id = $1 AND m.user_id = $2
		ORDER BY c.created_at
	`, teamID, userID)
}

func (r *channelRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Channel, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list channels", "error", err)
		return nil, err
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		c := &domain.Channel{}
		if err := rows.Scan(&c.ID, &c.TeamID, &c.Name, &c.Type, &c.IsDefault, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *channelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM channels WHERE id = $1 AND is_default = false`, id)
	if err != nil {
		r.log.Error("failed to delete channel", "error", err, "channel_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Forbidden("default channels cannot be deleted")
	}
	return nil
}

func (r *channelRepository) AddMember(ctx context.Context, member *domain.ChannelMember) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO channel_members (channel_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, user_id) DO NOTHING
	`, member.ChannelID, member.UserID, member.JoinedAt)
	if err != nil {
		r.log.Error("failed to add channel member", "error", err)
	}
	return err
}

func (r *channelRepository) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID)
	if err != nil {
		r.log.Error("failed to remove channel member", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("channel member not found")
	}
	return nil
}

func (r *channelRepository) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error) {
	member := &domain.ChannelMember{}
	err := r.db.QueryRow(ctx, `
		SELECT channel_id, user_id, joined_at
		FROM channel_members WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID).Scan(&member.ChannelID, &member.UserID, &member.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("channel member not found")
		}
		r.log.Error("failed to get channel member", "error", err)
		return nil, err
	}
	return member, nil
}

func (r *channelRepository) ListMembers(ctx context.Context, channelID uuid.UUID) ([]*domain.ChannelMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT channel_id, user_id, joined_at
		FROM channel_members WHERE channel_id = $1 ORDER BY joined_at
	`, channelID)
	if err != nil {
		r.log.Error("failed to list channel members", "error", err)
		return nil, err
	}
	defer rows.Close()

	var members []*domain.ChannelMember
	for rows.Next() {
		m := &domain.ChannelMember{}
		if err := rows.Scan(&m.ChannelID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
