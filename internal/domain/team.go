package domain

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerID     uuid.UUID `json:"owner_id"`
	MemberLimit int       `json:"member_limit"`
	CreatedAt   time.Time `json:"created_at"`
}

type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// TeamInvite is a single-use join capability: accepting it sets accepted_at
// and it can never be consumed again. Pending invites count toward the
// team's member limit.
type TeamInvite struct {
	ID         uuid.UUID  `json:"id"`
	TeamID     uuid.UUID  `json:"team_id"`
	Email      string     `json:"email"`
	Token      string     `json:"token"`
	InvitedBy  uuid.UUID  `json:"invited_by"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (i *TeamInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

func (i *TeamInvite) Accepted() bool { return i.AcceptedAt != nil }

const (
	TeamRoleOwner  = "owner"
	TeamRoleMember = "member"
)
