package domain

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	AvatarURL   *string       `json:"avatar_url,omitempty"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	Permissions PermissionSet `json:"permissions"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PermissionSet is the group-wide flag set. Role-based overrides (admin,
// moderator) take precedence over these generic flags at resolution time.
type PermissionSet struct {
	EditSettings   bool `json:"edit_settings"`
	SendMessage    bool `json:"send_message"`
	AddMembers     bool `json:"add_members"`
	UseInviteLink  bool `json:"use_invite_link"`
	AdminApproval  bool `json:"admin_approval"`
	ProtectContent bool `json:"protect_content"`
}

// DefaultPermissions matches a freshly created group: members may talk and
// invite, settings stay admin-only, joins do not need approval.
func DefaultPermissions() PermissionSet {
	return PermissionSet{
		EditSettings:   false,
		SendMessage:    true,
		AddMembers:     true,
		UseInviteLink:  true,
		AdminApproval:  false,
		ProtectContent: false,
	}
}

type GroupMember struct {
	GroupID    uuid.UUID  `json:"group_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Role       string     `json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
	IsMuted    bool       `json:"is_muted"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

type JoinRequest struct {
	ID        uuid.UUID  `json:"id"`
	GroupID   uuid.UUID  `json:"group_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Status    string     `json:"status"`
	DecidedBy *uuid.UUID `json:"decided_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// InviteLink is a reusable join capability: valid until expiry or explicit
// deletion, unlike team invites which are consumed once.
type InviteLink struct {
	ID        uuid.UUID  `json:"id"`
	GroupID   uuid.UUID  `json:"group_id"`
	Token     string     `json:"token"`
	CreatedBy uuid.UUID  `json:"created_by"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (l *InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)
