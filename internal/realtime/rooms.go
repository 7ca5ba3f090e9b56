package realtime

import (
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
)

// RoomKey names a multicast group of live sessions. Keys are always
// prefixed with their namespace so `group:7` and `chat:7` can never
// collide.
type RoomKey string

func UserRoom(id uuid.UUID) RoomKey    { return RoomKey("user:" + id.String()) }
func ChatRoom(id uuid.UUID) RoomKey    { return RoomKey("chat:" + id.String()) }
func GroupRoom(id uuid.UUID) RoomKey   { return RoomKey("group:" + id.String()) }
func ChannelRoom(id uuid.UUID) RoomKey { return RoomKey("channel:" + id.String()) }

// ConversationRoom maps a conversation reference to its room key.
func ConversationRoom(ref domain.ConversationRef) RoomKey {
	switch ref.Kind {
	case domain.KindChat:
		return ChatRoom(ref.ID)
	case domain.KindGroup:
		return GroupRoom(ref.ID)
	default:
		return ChannelRoom(ref.ID)
	}
}
