package repository

import (
	"context"
	"database/sql"
	"time"

	"pairchat/internal/domain"
)

// ConversationSummary is a row of a user's conversation list.
type ConversationSummary struct {
	Conversation *domain.Conversation
	PeerID       string
	UnreadCount  int
}

type Repository interface {
	// Conversations
	// InsertConversation inserts the canonical pair row. inserted is false
	// when a concurrent creator already holds the unique constraint; the
	// caller re-reads the winner instead of erroring.
	InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) (inserted bool, err error)
	GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	GetConversationByPair(ctx context.Context, tx *sql.Tx, userLo, userHi string) (*domain.Conversation, error)
	TouchConversation(ctx context.Context, tx *sql.Tx, id string, at time.Time) error
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)

	// Messages
	InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) error
	MarkMessageDelivered(ctx context.Context, tx *sql.Tx, msgID string, at time.Time) error
	GetMessageForUpdate(ctx context.Context, tx *sql.Tx, msgID string) (*domain.Message, error)
	UpdateMessageContent(ctx context.Context, tx *sql.Tx, msgID, content string, at time.Time) error
	MarkMessageDeleted(ctx context.Context, tx *sql.Tx, msgID string, at time.Time) error
	ListMessages(ctx context.Context, tx *sql.Tx, conversationID string) ([]*domain.Message, error)

	// Read receipts
	MarkConversationRead(ctx context.Context, tx *sql.Tx, conversationID, readerID string, at time.Time) ([]string, error)
	CountUnread(ctx context.Context, userID string) (int, error)

	// Reactions
	ToggleReaction(ctx context.Context, tx *sql.Tx, msgID, userID, emoji string) (added bool, err error)
	GetReactions(ctx context.Context, tx *sql.Tx, msgID string) (map[string][]string, error)
}
