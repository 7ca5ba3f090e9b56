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

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	Page(ctx context.Context, ref domain.ConversationRef, limit, offset int) ([]*domain.Message, error)

	// MarkDelivered sets delivered_at once; re-applying is a no-op. Returns
	// whether this call made the transition.
	MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error)
	// MarkSeenBulk sets seen_at on every message in the conversation not
	// sent by the viewer and not yet seen. Monotonic: set-once, never unset.
	MarkSeenBulk(ctx context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int64, error)
	// CountUnseen derives the unread count; it is never stored.
	CountUnseen(ctx context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_kind, conversation_id, sender_id, type, content, file_path, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := withRetry(ctx, r.log, "message.create", func() error {
		return r.db.QueryRow(ctx, query,
			msg.ID, msg.Conversation.Kind, msg.Conversation.ID, msg.SenderID,
			msg.Type, msg.Content, msg.FilePath, msg.Duration, msg.CreatedAt,
		).Scan(&msg.CreatedAt)
	})
	if err != nil {
		r.log.Error("failed to create message", "error", err)
		return err
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_kind, conversation_id, sender_id, type, content, file_path, duration, created_at, delivered_at, seen_at
		FROM messages WHERE id = $1
	`
	msg := &domain.Message{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.Conversation.Kind, &msg.Conversation.ID, &msg.SenderID,
		&msg.Type, &msg.Content, &msg.FilePath, &msg.Duration,
		&msg.CreatedAt, &msg.DeliveredAt, &msg.SeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("message not found")
		}
		r.log.Error("failed to get message", "error", err, "message_id", id)
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) Page(ctx context.Context, ref domain.ConversationRef, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_kind, conversation_id, sender_id, type, content, file_path, duration, created_at, delivered_at, seen_at
		FROM messages
		WHERE conversation_kind = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var rows pgx.Rows
	err := withRetry(ctx, r.log, "message.page", func() error {
		var qerr error
		rows, qerr = r.db.Query(ctx, query, ref.Kind, ref.ID, limit, offset)
		return qerr
	})
	if err != nil {
		r.log.Error("failed to page messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		if err := rows.Scan(
			&msg.ID, &msg.Conversation.Kind, &msg.Conversation.ID, &msg.SenderID,
			&msg.Type, &msg.Content, &msg.FilePath, &msg.Duration,
			&msg.CreatedAt, &msg.DeliveredAt, &msg.SeenAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *messageRepository) MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error) {
	// Guarded by delivered_at IS NULL so concurrent acks cannot race the
	// timestamp: first writer wins, the rest are no-ops.
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL
	`, messageID, time.Now())
	if err != nil {
		r.log.Error("failed to mark delivered", "error", err, "message_id", messageID)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *messageRepository) MarkSeenBulk(ctx context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int64, error) {
	// Seen implies delivered, so a message seen before any socket ack gets
	// both timestamps in one batch.
	now := time.Now()
	var tag int64
	err := withRetry(ctx, r.log, "message.mark_seen", func() error {
		res, qerr := r.db.Exec(ctx, `
			UPDATE messages
			SET seen_at = $4, delivered_at = COALESCE(delivered_at, $4)
			WHERE conversation_kind = $1 AND conversation_id = $2
			  AND sender_id <> $3 AND seen_at IS NULL
		`, ref.Kind, ref.ID, viewerID, now)
		if qerr != nil {
			return qerr
		}
		tag = res.RowsAffected()
		return nil
	})
	if err != nil {
		r.log.Error("failed to mark seen bulk", "error", err)
		return 0, err
	}
	return tag, nil
}

func (r *messageRepository) CountUnseen(ctx context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_kind = $1 AND conversation_id = $2
		  AND sender_id <> $3 AND seen_at IS NULL
	`, ref.Kind, ref.ID, viewerID).Scan(&count)
	if err != nil {
		r.log.Error("failed to count unseen", "error", err)
		return 0, err
	}
	return count, nil
}
