package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

func TestReactMessage(t *testing.T) {
	ctx := context.Background()
	conv := &domain.Conversation{ID: "c1", UserLo: "alice", UserHi: "bob"}

	t.Run("recipient reacts", func(t *testing.T) {
		repo := new(MockRepo)
		pub := &stubPublisher{}
		svc := newTestService(repo, &stubGate{allow: true}, pub, nil)

		msg := &domain.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "Hi"}
		repo.On("GetMessageForUpdate", ctx, mock.Anything, "m1").Return(msg, nil).Once()
		repo.On("GetConversation", ctx, mock.Anything, "c1").Return(conv, nil).Once()
		repo.On("ToggleReaction", ctx, mock.Anything, "m1", "bob", "❤️").Return(true, nil).Once()
		repo.On("GetReactions", ctx, mock.Anything, "m1").
			Return(map[string][]string{"❤️": {"bob"}}, nil).Once()

		reacted, err := svc.ReactMessage(ctx, ReactMessageCommand{
			MessageID:   "m1",
			RequesterID: "bob",
			Emoji:       "❤️",
		})
		assert.NoError(t, err)
		assert.Equal(t, map[string][]string{"❤️": {"bob"}}, reacted.Reactions)

		events := pub.published()
		if assert.Len(t, events, 1) {
			assert.Equal(t, event.TypeMessageUpdated, events[0].ev.Type)
		}
		repo.AssertExpectations(t)
	})

	t.Run("second identical reaction toggles off", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: true}, &stubPublisher{}, nil)

		msg := &domain.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "Hi"}
		repo.On("GetMessageForUpdate", ctx, mock.Anything, "m1").Return(msg, nil).Once()
		repo.On("GetConversation", ctx, mock.Anything, "c1").Return(conv, nil).Once()
		repo.On("ToggleReaction", ctx, mock.Anything, "m1", "bob", "👍").Return(false, nil).Once()
		repo.On("GetReactions", ctx, mock.Anything, "m1").
			Return(map[string][]string(nil), nil).Once()

		reacted, err := svc.ReactMessage(ctx, ReactMessageCommand{
			MessageID:   "m1",
			RequesterID: "bob",
			Emoji:       "👍",
		})
		assert.NoError(t, err)
		assert.Empty(t, reacted.Reactions, "toggled-off entry is pruned")
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: true}, &stubPublisher{}, nil)

		msg := &domain.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "Hi"}
		repo.On("GetMessageForUpdate", ctx, mock.Anything, "m1").Return(msg, nil).Once()
		repo.On("GetConversation", ctx, mock.Anything, "c1").Return(conv, nil).Once()

		_, err := svc.ReactMessage(ctx, ReactMessageCommand{
			MessageID:   "m1",
			RequesterID: "eve",
			Emoji:       "👍",
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "ToggleReaction",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty emoji is invalid", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: true}, &stubPublisher{}, nil)

		_, err := svc.ReactMessage(ctx, ReactMessageCommand{
			MessageID:   "m1",
			RequesterID: "bob",
			Emoji:       "  ",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
