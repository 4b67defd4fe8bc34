package event

import (
	"time"

	"pairchat/internal/domain"
)

type Type string

const (
	TypeMessageReceived Type = "message_received"
	TypeMessageUpdated  Type = "message_updated"
)

// Message is the wire representation of a message carried by realtime
// events. Deleted content is already masked by the time it gets here.
type Message struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	SenderID       string              `json:"sender_id"`
	Content        string              `json:"content"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Edited         bool                `json:"edited"`
	EditedAt       *time.Time          `json:"edited_at,omitempty"`
	Deleted        bool                `json:"deleted"`
	DeletedAt      *time.Time          `json:"deleted_at,omitempty"`
	ReadAt         *time.Time          `json:"read_at,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
}

// Event is the envelope published to live clients. Clients deduplicate by
// message id when the same event reaches them over both the conversation
// channel and their personal channel.
type Event struct {
	Type           Type      `json:"type"`
	ConversationID string    `json:"conversation_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	Message        Message   `json:"message"`
}

func FromMessage(t Type, m *domain.Message, now time.Time) Event {
	return Event{
		Type:           t,
		ConversationID: m.ConversationID,
		OccurredAt:     now,
		Message: Message{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Content:        m.Content,
			Status:         string(m.Status),
			CreatedAt:      m.CreatedAt,
			UpdatedAt:      m.UpdatedAt,
			Edited:         m.Edited,
			EditedAt:       m.EditedAt,
			Deleted:        m.Deleted,
			DeletedAt:      m.DeletedAt,
			ReadAt:         m.ReadAt,
			Reactions:      m.Reactions,
		},
	}
}
