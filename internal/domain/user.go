package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	Status        string     `json:"status"`
	CurrentTeamID *uuid.UUID `json:"current_team_id,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Device is a registered push endpoint. A user may hold many; they are
// pruned only by explicit removal.
type Device struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Platform  string    `json:"platform"`
	PushToken string    `json:"push_token"`
	CreatedAt time.Time `json:"created_at"`
}

type UserSession struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	RefreshTokenHash string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedReason    *string    `json:"revoked_reason,omitempty"`
}

const (
	StatusAvailable = "available"
	StatusAway      = "away"
	StatusDND       = "dnd"
)

func ValidStatus(s string) bool {
	return s == StatusAvailable || s == StatusAway || s == StatusDND
}

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
