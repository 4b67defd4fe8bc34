package domain

import (
	"fmt"
	"time"
)

// Conversation Invariants:
// 1. Membership: exactly 2 participants, stored in canonical order (UserLo < UserHi).
// 2. Uniqueness: at most one conversation per unordered pair (enforced by the store).
// 3. LastMessageAt: monotonically non-decreasing.
type Conversation struct {
	ID            string
	UserLo        string
	UserHi        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastMessageAt time.Time
}

// CanonicalPair orders two user ids so that an unordered pair maps to a
// single storage key regardless of which side initiates.
func CanonicalPair(a, b string) (lo, hi string, err error) {
	if a == "" || b == "" {
		return "", "", fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	if a == b {
		return "", "", fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

func NewConversation(id, userA, userB string, now time.Time) (*Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty conversation id", ErrInvalidInput)
	}
	lo, hi, err := CanonicalPair(userA, userB)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		ID:            id,
		UserLo:        lo,
		UserHi:        hi,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
	}, nil
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.UserLo || userID == c.UserHi
}

// PeerOf returns the other participant. ok is false when userID is not a
// participant at all.
func (c *Conversation) PeerOf(userID string) (peer string, ok bool) {
	switch userID {
	case c.UserLo:
		return c.UserHi, true
	case c.UserHi:
		return c.UserLo, true
	default:
		return "", false
	}
}
