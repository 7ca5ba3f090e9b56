package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

const onlineSetKey = "presence:online"

// PresenceRepository mirrors the in-process registry's online set into
// redis so HTTP handlers can answer presence queries without reaching into
// connection state. The registry remains the source of truth for fan-out;
// this mirror is advisory.
type PresenceRepository interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	OnlineUsers(ctx context.Context) ([]uuid.UUID, error)
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

type presenceRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewPresenceRepository(rdb *redis.Client, log logger.Logger) PresenceRepository {
	return &presenceRepository{redis: rdb, log: log}
}

func (r *presenceRepository) SetOnline(ctx context.Context, userID uuid.UUID) error {
	if err := r.redis.SAdd(ctx, onlineSetKey, userID.String()).Err(); err != nil {
		r.log.Error("failed to mark user online", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if err := r.redis.SRem(ctx, onlineSetKey, userID.String()).Err(); err != nil {
		r.log.Error("failed to mark user offline", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) OnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		r.log.Error("failed to fetch online users", "error", err)
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *presenceRepository) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := r.redis.SIsMember(ctx, onlineSetKey, userID.String()).Result()
	if err != nil {
		r.log.Error("failed to check online state", "error", err, "user_id", userID)
		return false, err
	}
	return ok, nil
}
