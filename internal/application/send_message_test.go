package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pairchat/internal/domain"
	"pairchat/internal/event"
)

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers and fans out on first contact", func(t *testing.T) {
		repo := new(MockRepo)
		pub := &stubPublisher{}
		notifier := newStubNotifier()
		g := &stubGate{allow: true}
		svc := newTestService(repo, g, pub, notifier)

		repo.On("GetConversationByPair", ctx, mock.Anything, "alice", "bob").
			Return(nil, fmt.Errorf("%w: conversation", domain.ErrNotFound)).Once()
		repo.On("InsertConversation", ctx, mock.Anything, mock.Anything).Return(true, nil).Once()
		repo.On("InsertMessage", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("MarkMessageDelivered", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("TouchConversation", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		msg, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "  Hi  ",
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, msg.Status, "callers never observe sent")
		assert.Equal(t, "Hi", msg.Content)
		assert.Equal(t, [][2]string{{"alice", "bob"}}, g.calls)

		events := pub.published()
		if assert.Len(t, events, 1) {
			assert.Equal(t, event.TypeMessageReceived, events[0].ev.Type)
			assert.ElementsMatch(t, []event.ChannelKey{
				event.ConversationChannel(msg.ConversationID),
				event.UserChannel("bob"),
			}, events[0].targets)
		}

		select {
		case n := <-notifier.ch:
			assert.Equal(t, "bob", n.RecipientID)
			assert.Equal(t, "alice", n.SenderID)
			assert.Equal(t, "Hi", n.Preview)
		case <-time.After(time.Second):
			t.Fatal("notification never dispatched")
		}

		repo.AssertExpectations(t)
	})

	t.Run("losing the creation race falls back to the winner", func(t *testing.T) {
		repo := new(MockRepo)
		pub := &stubPublisher{}
		svc := newTestService(repo, &stubGate{allow: true}, pub, nil)

		winner := &domain.Conversation{ID: "conv-w", UserLo: "alice", UserHi: "bob"}

		repo.On("GetConversationByPair", ctx, mock.Anything, "alice", "bob").
			Return(nil, fmt.Errorf("%w: conversation", domain.ErrNotFound)).Once()
		repo.On("InsertConversation", ctx, mock.Anything, mock.Anything).Return(false, nil).Once()
		repo.On("GetConversationByPair", ctx, mock.Anything, "alice", "bob").
			Return(winner, nil).Once()
		repo.On("InsertMessage", ctx, mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ConversationID == "conv-w"
		})).Return(nil).Once()
		repo.On("MarkMessageDelivered", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("TouchConversation", ctx, mock.Anything, "conv-w", mock.Anything).Return(nil).Once()

		msg, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "bob",
			RecipientID: "alice",
			Content:     "hello",
		})
		assert.NoError(t, err)
		assert.Equal(t, "conv-w", msg.ConversationID)
		repo.AssertExpectations(t)
	})

	t.Run("gate denial is forbidden and writes nothing", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: false}, &stubPublisher{}, nil)

		_, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "mallory",
			Content:     "hi",
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "InsertConversation", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "InsertMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gate failure is unavailable", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{err: errors.New("graph down")}, &stubPublisher{}, nil)

		_, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "hi",
		})
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("self message is invalid before the gate runs", func(t *testing.T) {
		repo := new(MockRepo)
		g := &stubGate{allow: true}
		svc := newTestService(repo, g, &stubPublisher{}, nil)

		_, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "alice",
			Content:     "hi me",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, g.calls)
	})

	t.Run("whitespace-only content is invalid", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: true}, &stubPublisher{}, nil)

		_, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "   ",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("sending into a conversation requires membership", func(t *testing.T) {
		repo := new(MockRepo)
		svc := newTestService(repo, &stubGate{allow: true}, &stubPublisher{}, nil)

		conv := &domain.Conversation{ID: "c1", UserLo: "alice", UserHi: "bob"}
		repo.On("GetConversation", ctx, mock.Anything, "c1").Return(conv, nil).Once()

		_, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:       "eve",
			ConversationID: "c1",
			Content:        "hi",
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("publish failure does not fail the send", func(t *testing.T) {
		repo := new(MockRepo)
		pub := &stubPublisher{err: errors.New("redis down")}
		svc := newTestService(repo, &stubGate{allow: true}, pub, nil)

		conv := &domain.Conversation{ID: "c1", UserLo: "alice", UserHi: "bob"}
		repo.On("GetConversationByPair", ctx, mock.Anything, "alice", "bob").Return(conv, nil).Once()
		repo.On("InsertMessage", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("MarkMessageDelivered", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("TouchConversation", ctx, mock.Anything, "c1", mock.Anything).Return(nil).Once()

		msg, err := svc.SendMessage(ctx, SendMessageCommand{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "hi",
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, msg.Status)
	})
}
