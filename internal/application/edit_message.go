package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

type EditMessageCommand struct {
	MessageID   string
	RequesterID string
	Content     string
}

// EditMessage mutates content in place. Only the sender may edit, a deleted
// message can never be edited, and neither status nor reactions change.
func (s *Service) EditMessage(
	ctx context.Context,
	cmd EditMessageCommand,
) (*domain.Message, error) {

	content, err := domain.NormalizeContent(cmd.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var msg *domain.Message
	var conv *domain.Conversation

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, cmd.MessageID)
		if err != nil {
			return err
		}
		if m.SenderID != cmd.RequesterID {
			return fmt.Errorf("%w: only the sender may edit", domain.ErrForbidden)
		}
		if m.Deleted {
			return fmt.Errorf("%w: message is deleted", domain.ErrInvalidState)
		}

		if err := s.repo.UpdateMessageContent(ctx, tx, m.ID, content, now); err != nil {
			return err
		}
		m.Content = content
		m.Edited = true
		m.EditedAt = &now
		m.UpdatedAt = now

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

	s.publish(ctx, event.TypeMessageUpdated, msg,
		event.ConversationChannel(msg.ConversationID),
		event.UserChannel(conv.UserLo),
		event.UserChannel(conv.UserHi),
	)
	return msg, nil
}
