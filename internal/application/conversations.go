package application

import (
	"context"
	"fmt"

	"pairchat/internal/domain"
	"pairchat/internal/repository"
)

// ListConversations returns the user's conversations ordered by most recent
// activity, each with the peer id and a per-conversation unread count.
func (s *Service) ListConversations(
	ctx context.Context,
	userID string,
) ([]repository.ConversationSummary, error) {
	return s.repo.ListConversations(ctx, userID)
}

// GetConversation is participant-gated.
func (s *Service) GetConversation(
	ctx context.Context,
	conversationID, requesterID string,
) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
	}
	return conv, nil
}

// CanSubscribe authorizes a live client joining a conversation channel.
func (s *Service) CanSubscribe(ctx context.Context, conversationID, userID string) error {
	_, err := s.GetConversation(ctx, conversationID, userID)
	return err
}
