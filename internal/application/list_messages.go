package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

// ListMessages returns the conversation's messages in ascending creation
// order (ties broken by id), deleted ones masked in place. As a side effect
// every delivered message from the other participant transitions to read
// with a single batch timestamp, which is the read-receipt mechanism.
func (s *Service) ListMessages(
	ctx context.Context,
	conversationID, requesterID string,
) ([]*domain.Message, error) {

	now := time.Now().UTC()
	var msgs []*domain.Message
	var conv *domain.Conversation
	var readIDs []string

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		conv, err = s.repo.GetConversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(requesterID) {
			return fmt.Errorf("%w: not a participant", domain.ErrForbidden)
		}

		// Batch receipt before the read so the returned statuses already
		// reflect it.
		readIDs, err = s.repo.MarkConversationRead(ctx, tx, conversationID, requesterID, now)
		if err != nil {
			return err
		}

		msgs, err = s.repo.ListMessages(ctx, tx, conversationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(readIDs) > 0 {
		transitioned := make(map[string]struct{}, len(readIDs))
		for _, id := range readIDs {
			transitioned[id] = struct{}{}
		}
		// Let the other party's live clients update their receipts.
		for _, m := range msgs {
			if _, ok := transitioned[m.ID]; !ok {
				continue
			}
			s.publish(ctx, event.TypeMessageUpdated, m,
				event.ConversationChannel(conversationID),
				event.UserChannel(m.SenderID),
			)
		}
	}

	return msgs, nil
}
