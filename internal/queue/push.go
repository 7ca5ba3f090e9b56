package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

const TaskPushNotification = "notification:push"

// PushPayload is the queue-transported shape for a device push. It stays
// decoupled from the domain type so the wire format can evolve separately.
type PushPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
}

// Enqueuer hands background tasks to the queue. Callers treat failures as
// fire-and-forget: an enqueue error is logged, never propagated.
type Enqueuer interface {
	EnqueuePush(ctx context.Context, p PushPayload) error
	Close() error
}

type Client struct {
	client *asynq.Client
	log    logger.Logger
}

func NewClient(cfg config.RedisConfig, log logger.Logger) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{client: c, log: log}
}

func (c *Client) EnqueuePush(ctx context.Context, p PushPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskPushNotification, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Queue("push"))
	return err
}

func (c *Client) Close() error { return c.client.Close() }

// NewServer builds the worker that drains push tasks alongside the API
// process.
func NewServer(cfg config.RedisConfig, log logger.Logger) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"push": 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("push task failed", "type", task.Type(), "error", err)
			}),
		},
	)
}

// NewMux registers the push handler. Actual transport to APNs/FCM is an
// external concern; the handler resolves the user's registered devices and
// records the hand-off.
func NewMux(users repository.UserRepository, log logger.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPushNotification, func(ctx context.Context, task *asynq.Task) error {
		var p PushPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			// Malformed payload will never succeed; drop it.
			log.Error("malformed push payload", "error", err)
			return nil
		}
		devices, err := users.ListDevices(ctx, p.UserID)
		if err != nil {
			return err
		}
		for _, d := range devices {
			log.Info("push dispatched",
				"notification_id", p.NotificationID,
				"user_id", p.UserID,
				"device_id", d.ID,
				"platform", d.Platform,
			)
		}
		return nil
	})
	return mux
}
