package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/event"
	"pairchat/internal/observability"
)

type SendMessageCommand struct {
	SenderID string
	// One of RecipientID or ConversationID identifies the target.
	RecipientID    string
	ConversationID string
	Content        string
}

// SendMessage validates, gates, resolves the conversation, and persists the
// message. The response never carries status "sent": the message advances to
// delivered inside the same transaction, so a failed send leaves no
// partially-visible record. Fan-out and notification run after the commit.
func (s *Service) SendMessage(
	ctx context.Context,
	cmd SendMessageCommand,
) (*domain.Message, error) {

	content, err := domain.NormalizeContent(cmd.Content)
	if err != nil {
		return nil, err
	}

	recipientID := cmd.RecipientID
	var conv *domain.Conversation

	if cmd.ConversationID != "" {
		conv, err = s.repo.GetConversation(ctx, nil, cmd.ConversationID)
		if err != nil {
			return nil, err
		}
		peer, ok := conv.PeerOf(cmd.SenderID)
		if !ok {
			return nil, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
		}
		recipientID = peer
	} else if _, _, err := domain.CanonicalPair(cmd.SenderID, recipientID); err != nil {
		return nil, err
	}

	// Connection gate runs before any conversation is resolved or created.
	allowed, err := s.gate.CanMessage(ctx, cmd.SenderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("%w: connection gate: %v", domain.ErrUnavailable, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: users are not connected", domain.ErrForbidden)
	}

	now := time.Now().UTC()
	var msg *domain.Message

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if conv == nil {
			conv, err = s.resolveOrCreateConversation(ctx, tx, cmd.SenderID, recipientID, now)
			if err != nil {
				return err
			}
		}

		m, err := domain.NewMessage(uuid.NewString(), conv.ID, cmd.SenderID, content, now)
		if err != nil {
			return err
		}
		if err := s.repo.InsertMessage(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}

		// Durably stored, so advance sent -> delivered before responding.
		if err := s.repo.MarkMessageDelivered(ctx, tx, m.ID, now); err != nil {
			return fmt.Errorf("failed to mark message delivered: %w", err)
		}
		m.Status = domain.StatusDelivered
		m.UpdatedAt = now

		if err := s.repo.TouchConversation(ctx, tx, conv.ID, now); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}

		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.MessagesSentTotal.Inc()
	s.log.Info("message sent",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
	)

	// Both channels on purpose: a recipient without the conversation open
	// still gets the event on their personal channel. Clients deduplicate
	// by message id.
	s.publish(ctx, event.TypeMessageReceived, msg,
		event.ConversationChannel(msg.ConversationID),
		event.UserChannel(recipientID),
	)
	s.dispatchNotification(msg, recipientID)

	return msg, nil
}

// resolveOrCreateConversation is the conversation directory: it maps the
// unordered user pair onto its single canonical conversation, creating it
// lazily on first contact. A creator losing the insert race falls back to
// the winner's row.
func (s *Service) resolveOrCreateConversation(
	ctx context.Context,
	tx *sql.Tx,
	userA, userB string,
	now time.Time,
) (*domain.Conversation, error) {

	lo, hi, err := domain.CanonicalPair(userA, userB)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetConversationByPair(ctx, tx, lo, hi)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	conv, err := domain.NewConversation(uuid.NewString(), userA, userB, now)
	if err != nil {
		return nil, err
	}
	inserted, err := s.repo.InsertConversation(ctx, tx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	if !inserted {
		return s.repo.GetConversationByPair(ctx, tx, lo, hi)
	}
	return conv, nil
}
