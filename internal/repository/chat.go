package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type ChatRepository interface {
	// FindOrCreate returns the unique chat for the unordered user pair,
	// creating it on first contact. created reports whether this call made
	// the row; concurrent callers converge on the same chat id.
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (chat *domain.Chat, created bool, err error)
	FindBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

// orderPair normalizes the unordered pair so (a,b) and (b,a) hit the same
// unique index row.
func orderPair(userA, userB uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(userA.String(), userB.String()) > 0 {
		return userB, userA
	}
	return userA, userB
}

func (r *chatRepository) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, bool, error) {
	a, b := orderPair(userA, userB)

	// Upsert keyed on the pair: racing first-message sends both land on the
	// one row instead of erroring or duplicating.
	query := `
		INSERT INTO chats (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a_id, user_b_id) DO UPDATE SET user_a_id = EXCLUDED.user_a_id
		RETURNING id, user_a_id, user_b_id, created_at, (xmax = 0) AS inserted
	`
	chat := &domain.Chat{}
	var inserted bool
	err := withRetry(ctx, r.log, "chat.find_or_create", func() error {
		return r.db.QueryRow(ctx, query, uuid.New(), a, b, time.Now()).Scan(
			&chat.ID, &chat.UserAID, &chat.UserBID, &chat.CreatedAt, &inserted,
		)
	})
	if err != nil {
		r.log.Error("failed to find or create chat", "error", err)
		return nil, false, err
	}
	return chat, inserted, nil
}

func (r *chatRepository) FindBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	a, b := orderPair(userA, userB)
	chat := &domain.Chat{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_a_id, user_b_id, created_at
		FROM chats WHERE user_a_id = $1 AND user_b_id = $2
	`, a, b).Scan(&chat.ID, &chat.UserAID, &chat.UserBID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("chat not found")
		}
		r.log.Error("failed to find chat", "error", err)
		return nil, err
	}
	return chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	chat := &domain.Chat{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_a_id, user_b_id, created_at FROM chats WHERE id = $1
	`, id).Scan(&chat.ID, &chat.UserAID, &chat.UserBID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("chat not found")
		}
		r.log.Error("failed to get chat", "error", err, "chat_id", id)
		return nil, err
	}
	return chat, nil
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_a_id, user_b_id, created_at
		FROM chats
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		r.log.Error("failed to list chats", "error", err)
		return nil, err
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		c := &domain.Chat{}
		if err := rows.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
