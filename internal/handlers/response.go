package handlers

import (
	"time"

	"pairchat/internal/domain"
)

type messageDTO struct {
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

func messageResponse(m *domain.Message) messageDTO {
	return messageDTO{
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
	}
}

type conversationDTO struct {
	ID            string    `json:"id"`
	UserLo        string    `json:"user_lo"`
	UserHi        string    `json:"user_hi"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func conversationResponse(c *domain.Conversation) conversationDTO {
	return conversationDTO{
		ID:            c.ID,
		UserLo:        c.UserLo,
		UserHi:        c.UserHi,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

type conversationSummaryDTO struct {
	Conversation conversationDTO `json:"conversation"`
	PeerID       string          `json:"peer_id"`
	UnreadCount  int             `json:"unread_count"`
}
