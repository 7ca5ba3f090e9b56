package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateCurrentTeam(ctx context.Context, id uuid.UUID, teamID *uuid.UUID) error

	CreateSession(ctx context.Context, session *domain.UserSession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID, reason string) error

	CreateDevice(ctx context.Context, device *domain.Device) error
	DeleteDevice(ctx context.Context, id, userID uuid.UUID) error
	ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.Device, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

const userColumns = `id, name, email, password_hash, avatar_url, status, current_team_id, last_login_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, avatar_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.AvatarURL,
		user.Status, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("user with this email already exists")
		}
		r.log.Error("failed to create user", "error", err)
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := withRetry(ctx, r.log, "user.get", func() error {
		return r.db.QueryRow(ctx, query, arg).Scan(
			&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.AvatarURL,
			&user.Status, &user.CurrentTeamID, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		r.log.Error("failed to get user", "error", err)
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, avatar_url = $3, status = $4, current_team_id = $5, last_login_at = $6, updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.AvatarURL, user.Status, user.CurrentTeamID, user.LastLoginAt,
	)
	if err != nil {
		r.log.Error("failed to update user", "error", err, "user_id", user.ID)
	}
	return err
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		r.log.Error("failed to update status", "error", err, "user_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

func (r *userRepository) UpdateCurrentTeam(ctx context.Context, id uuid.UUID, teamID *uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET current_team_id = $2, updated_at = now() WHERE id = $1`, id, teamID)
	if err != nil {
		r.log.Error("failed to update current team", "error", err, "user_id", id)
	}
	return err
}

func (r *userRepository) CreateSession(ctx context.Context, session *domain.UserSession) error {
	query := `
		INSERT INTO user_sessions (id, user_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.RefreshTokenHash, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		r.log.Error("failed to create session", "error", err)
	}
	return err
}

func (r *userRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, created_at, expires_at, revoked_at, revoked_reason
		FROM user_sessions
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
	`
	session := &domain.UserSession{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.RefreshTokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("session not found")
		}
		r.log.Error("failed to get session", "error", err)
		return nil, err
	}
	return session, nil
}

func (r *userRepository) RevokeSession(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE user_sessions SET revoked_at = now(), revoked_reason = $2 WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.db.Exec(ctx, query, id, reason)
	if err != nil {
		r.log.Error("failed to revoke session", "error", err, "session_id", id)
	}
	return err
}

func (r *userRepository) CreateDevice(ctx context.Context, device *domain.Device) error {
	query := `
		INSERT INTO devices (id, user_id, platform, push_token, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, push_token) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		device.ID, device.UserID, device.Platform, device.PushToken, device.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to create device", "error", err)
	}
	return err
}

func (r *userRepository) DeleteDevice(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.log.Error("failed to delete device", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("device not found")
	}
	return nil
}

func (r *userRepository) ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.Device, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, platform, push_token, created_at
		FROM devices WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		r.log.Error("failed to list devices", "error", err)
		return nil, err
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		d := &domain.Device{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.Platform, &d.PushToken, &d.CreatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
