package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a team-scoped conversation. Default channels cannot be left or
// deleted and every team member is auto-joined to them.
type Channel struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsDefault bool      `json:"is_default"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type ChannelMember struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

const (
	ChannelTypePublic  = "public"
	ChannelTypePrivate = "private"
	ChannelTypeDM      = "dm"
)

func ValidChannelType(t string) bool {
	return t == ChannelTypePublic || t == ChannelTypePrivate || t == ChannelTypeDM
}
