package realtime

import (
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
)

// Server → client event names.
const (
	EventReceiveMessage          = "receive_message"
	EventTyping                  = "typing"
	EventStopTyping              = "stop_typing"
	EventMessageSeen             = "message_seen"
	EventUserOnline              = "user_online"
	EventUserOffline             = "user_offline"
	EventNotification            = "notification"
	EventGroupAdded              = "group_added"
	EventGroupPermissionsUpdated = "group_permissions_updated"
)

// Client → server frame names.
const (
	FrameJoinRoom   = "join_room"
	FrameTyping     = "typing"
	FrameStopTyping = "stop_typing"
	FrameMarkSeen   = "mark_seen"
)

// Envelope is the wire shape of every server-sent event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientFrame is the wire shape of every client-sent frame. Conversation
// identifies the target for typing/seen frames; Room carries a raw room key
// for join_room.
type ClientFrame struct {
	Event        string                  `json:"event"`
	Room         string                  `json:"room,omitempty"`
	Conversation *domain.ConversationRef `json:"conversation,omitempty"`
}

// Event is a routed fan-out unit: a named payload targeted at a room set,
// or at every live session when Global is set. ExcludeSession drops the
// originating session so a sender never echoes to itself.
type Event struct {
	Name           string
	Rooms          []RoomKey
	Global         bool
	ExcludeSession string
	Payload        any
}

type ReceiveMessagePayload struct {
	Conversation domain.ConversationRef `json:"conversation"`
	Message      *domain.Message        `json:"message"`
}

type TypingPayload struct {
	Conversation domain.ConversationRef `json:"conversation"`
	UserID       uuid.UUID              `json:"user_id"`
	Name         string                 `json:"name,omitempty"`
}

type MessageSeenPayload struct {
	Conversation domain.ConversationRef `json:"conversation"`
	UserID       uuid.UUID              `json:"user_id"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

type NotificationPayload struct {
	Notification *domain.Notification `json:"notification"`
}

type GroupAddedPayload struct {
	GroupID uuid.UUID     `json:"group_id"`
	Group   *domain.Group `json:"group"`
}

type GroupPermissionsPayload struct {
	GroupID     uuid.UUID            `json:"group_id"`
	Permissions domain.PermissionSet `json:"permissions"`
}
