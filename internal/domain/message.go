package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message carries aggregate delivery state: delivered_at and seen_at are
// single per-message timestamps, not per-recipient rows. Once set they are
// never unset; "seen" means at least one non-sender participant saw it.
type Message struct {
	ID           uuid.UUID       `json:"id"`
	Conversation ConversationRef `json:"conversation"`
	SenderID     uuid.UUID       `json:"sender_id"`
	Type         string          `json:"type"`
	Content      string          `json:"content"`
	FilePath     *string         `json:"file_path,omitempty"`
	Duration     *int            `json:"duration,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	SeenAt       *time.Time      `json:"seen_at,omitempty"`
}

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypePDF   = "pdf"
	MessageTypeVoice = "voice"
	MessageTypeVideo = "video"
)

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypePDF, MessageTypeVoice, MessageTypeVideo:
		return true
	}
	return false
}
