package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a fire-and-forget side effect of other transitions; its
// creation must never fail the operation that triggered it.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	NotificationMessage      = "message"
	NotificationGroupAdded   = "group_added"
	NotificationGroupRemoved = "group_removed"
	NotificationJoinRequest  = "join_request"
	NotificationJoinApproved = "join_approved"
	NotificationJoinRejected = "join_rejected"
	NotificationTeamInvite   = "team_invite"
	NotificationChannelAdded = "channel_added"
)
