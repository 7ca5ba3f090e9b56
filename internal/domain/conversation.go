package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationKind tags the three concrete conversation shapes.
type ConversationKind string

const (
	KindChat    ConversationKind = "chat"
	KindGroup   ConversationKind = "group"
	KindChannel ConversationKind = "channel"
)

// ConversationRef is a typed reference to a conversation of any kind. The
// kind participates in room-key derivation so the four namespaces can never
// collide on a bare id.
type ConversationRef struct {
	Kind ConversationKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

func ChatRef(id uuid.UUID) ConversationRef    { return ConversationRef{Kind: KindChat, ID: id} }
func GroupRef(id uuid.UUID) ConversationRef   { return ConversationRef{Kind: KindGroup, ID: id} }
func ChannelRef(id uuid.UUID) ConversationRef { return ConversationRef{Kind: KindChannel, ID: id} }

func (r ConversationRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Chat is a 1:1 conversation, unique per unordered user pair and created
// lazily on the first message between the pair.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserAID   uuid.UUID `json:"user_a_id"`
	UserBID   uuid.UUID `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OtherUser returns the chat participant that is not userID.
func (c *Chat) OtherUser(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

func (c *Chat) HasUser(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Membership is the resolver's answer for (actor, conversation). Role and
// Permissions are nil/empty for direct chats.
type Membership struct {
	IsMember    bool           `json:"is_member"`
	Role        string         `json:"role,omitempty"`
	Permissions *PermissionSet `json:"permissions,omitempty"`
}

// Can reports whether the membership allows the given permission flag.
// Admin and moderator roles override disabled flags; absence of membership
// always denies.
func (m Membership) Can(allowed func(PermissionSet) bool) bool {
	if !m.IsMember {
		return false
	}
	if m.Role == RoleAdmin || m.Role == RoleModerator {
		return true
	}
	if m.Permissions == nil {
		return true
	}
	return allowed(*m.Permissions)
}
