package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

type DeleteMessageCommand struct {
	MessageID   string
	RequesterID string
}

// DeleteMessage soft-deletes: the row keeps its position in the conversation
// and every future read exposes the placeholder. Deleting an already-deleted
// message is a no-op success.
func (s *Service) DeleteMessage(
	ctx context.Context,
	cmd DeleteMessageCommand,
) (*domain.Message, error) {

	now := time.Now().UTC()
	var msg *domain.Message
	var conv *domain.Conversation
	alreadyDeleted := false

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, cmd.MessageID)
		if err != nil {
			return err
		}
		if m.SenderID != cmd.RequesterID {
			return fmt.Errorf("%w: only the sender may delete", domain.ErrForbidden)
		}

		if m.Deleted {
			alreadyDeleted = true
			msg = m
			return nil
		}

		if err := s.repo.MarkMessageDeleted(ctx, tx, m.ID, now); err != nil {
			return err
		}
		m.Deleted = true
		m.DeletedAt = &now
		m.UpdatedAt = now
		m.MaskDeleted()

		conv, err = s.repo.GetConversation(ctx, tx, m.ConversationID)
		if err != nil {
			return err
		}

		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyDeleted {
		s.publish(ctx, event.TypeMessageUpdated, msg,
			event.ConversationChannel(msg.ConversationID),
			event.UserChannel(conv.UserLo),
			event.UserChannel(conv.UserHi),
		)
	}
	return msg, nil
}
