package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageSize = 5000

// DeletedPlaceholder is what every read path exposes in place of a deleted
// message's content. The stored row keeps its position in the conversation.
const DeletedPlaceholder = "This message was deleted"

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanAdvance reports whether moving from s to next respects the
// sent -> delivered -> read state machine. Status never regresses.
func (s Status) CanAdvance(next Status) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Message Invariants:
// 1. Status transitions are monotonic (sent -> delivered -> read).
// 2. Only the original sender may edit or delete.
// 3. A deleted message never exposes its content and cannot be edited.
// 4. Reactions map emoji to the set of user ids that applied it; empty
//    entries are pruned.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Edited         bool
	EditedAt       *time.Time
	Deleted        bool
	DeletedAt      *time.Time
	ReadAt         *time.Time
	Reactions      map[string][]string
}

func NewMessage(id, conversationID, senderID, content string, now time.Time) (*Message, error) {
	if id == "" || conversationID == "" || senderID == "" {
		return nil, fmt.Errorf("%w: missing message identity", ErrInvalidInput)
	}
	content, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NormalizeContent trims surrounding whitespace and rejects empty or
// oversized content.
func NormalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	if len(content) > MaxMessageSize {
		return "", fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, MaxMessageSize)
	}
	return content, nil
}

// MaskDeleted substitutes the placeholder for the stored content. Repository
// scan paths call this so deleted content never leaves the storage layer.
func (m *Message) MaskDeleted() {
	if m.Deleted {
		m.Content = DeletedPlaceholder
	}
}

// Preview returns a truncated content preview for notification summaries.
func (m *Message) Preview(maxRunes int) string {
	if m.Deleted {
		return DeletedPlaceholder
	}
	if utf8.RuneCountInString(m.Content) <= maxRunes {
		return m.Content
	}
	runes := []rune(m.Content)
	return string(runes[:maxRunes]) + "…"
}
