package application

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

type ReactMessageCommand struct {
	MessageID   string
	RequesterID string
	Emoji       string
}

// ReactMessage toggles the requester's reaction: applying an emoji the user
// already has removes it, otherwise it is added. Either conversation
// participant may react, not just the sender.
func (s *Service) ReactMessage(
	ctx context.Context,
	cmd ReactMessageCommand,
) (*domain.Message, error) {

	emoji := strings.TrimSpace(cmd.Emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: empty reaction", domain.ErrInvalidInput)
	}

	var msg *domain.Message
	var conv *domain.Conversation

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, cmd.MessageID)
		if err != nil {
			return err
		}

		conv, err = s.repo.GetConversation(ctx, tx, m.ConversationID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(cmd.RequesterID) {
			return fmt.Errorf("%w: not a participant", domain.ErrForbidden)
		}

		if _, err := s.repo.ToggleReaction(ctx, tx, m.ID, cmd.RequesterID, emoji); err != nil {
			return err
		}

		reactions, err := s.repo.GetReactions(ctx, tx, m.ID)
		if err != nil {
			return err
		}
		m.Reactions = reactions

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
