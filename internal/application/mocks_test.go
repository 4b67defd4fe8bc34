package application

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/event"
	"pairchat/internal/notify"
	"pairchat/internal/repository"
)

// MockRepo is a mock for the repository.Repository interface.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) (bool, error) {
	args := m.Called(ctx, tx, conv)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockRepo) GetConversationByPair(ctx context.Context, tx *sql.Tx, userLo, userHi string) (*domain.Conversation, error) {
	args := m.Called(ctx, tx, userLo, userHi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockRepo) TouchConversation(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	return m.Called(ctx, tx, id, at).Error(0)
}

func (m *MockRepo) ListConversations(ctx context.Context, userID string) ([]repository.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ConversationSummary), args.Error(1)
}

func (m *MockRepo) InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) error {
	return m.Called(ctx, tx, msg).Error(0)
}

func (m *MockRepo) MarkMessageDelivered(ctx context.Context, tx *sql.Tx, msgID string, at time.Time) error {
	return m.Called(ctx, tx, msgID, at).Error(0)
}

func (m *MockRepo) GetMessageForUpdate(ctx context.Context, tx *sql.Tx, msgID string) (*domain.Message, error) {
	args := m.Called(ctx, tx, msgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockRepo) UpdateMessageContent(ctx context.Context, tx *sql.Tx, msgID, content string, at time.Time) error {
	return m.Called(ctx, tx, msgID, content, at).Error(0)
}

func (m *MockRepo) MarkMessageDeleted(ctx context.Context, tx *sql.Tx, msgID string, at time.Time) error {
	return m.Called(ctx, tx, msgID, at).Error(0)
}

func (m *MockRepo) ListMessages(ctx context.Context, tx *sql.Tx, conversationID string) ([]*domain.Message, error) {
	args := m.Called(ctx, tx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockRepo) MarkConversationRead(ctx context.Context, tx *sql.Tx, conversationID, readerID string, at time.Time) ([]string, error) {
	args := m.Called(ctx, tx, conversationID, readerID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) ToggleReaction(ctx context.Context, tx *sql.Tx, msgID, userID, emoji string) (bool, error) {
	args := m.Called(ctx, tx, msgID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) GetReactions(ctx context.Context, tx *sql.Tx, msgID string) (map[string][]string, error) {
	args := m.Called(ctx, tx, msgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

// MockTransactor runs the function without a real transaction.
type MockTransactor struct{}

func (m *MockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

// stubGate answers CanMessage from a fixed policy and records calls.
type stubGate struct {
	mu    sync.Mutex
	allow bool
	err   error
	calls [][2]string
}

func (g *stubGate) CanMessage(ctx context.Context, userA, userB string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, [2]string{userA, userB})
	return g.allow, g.err
}

// stubPublisher records published events in order.
type stubPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	ev      event.Event
	targets []event.ChannelKey
}

func (p *stubPublisher) Publish(ctx context.Context, ev event.Event, targets ...event.ChannelKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{ev: ev, targets: targets})
	return p.err
}

func (p *stubPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// stubNotifier hands notifications to a channel so tests can wait for the
// fire-and-forget goroutine.
type stubNotifier struct {
	ch  chan notify.Notification
	err error
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{ch: make(chan notify.Notification, 8)}
}

func (n *stubNotifier) Notify(ctx context.Context, notification notify.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.ch <- notification
	return nil
}

func newTestService(repo *MockRepo, g *stubGate, pub *stubPublisher, n *stubNotifier) *Service {
	var notifier notify.Notifier
	if n != nil {
		notifier = n
	}
	return New(repo, &MockTransactor{}, g, pub, notifier, zap.NewNop())
}
