// Package application implements the messaging use cases: sending, editing,
// deleting, reacting, listing with read receipts, and unread counts. Each
// operation commits durably first; realtime fan-out and notifications are
// best-effort side effects that run after the commit.
package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/event"
	"pairchat/internal/gate"
	"pairchat/internal/notify"
	"pairchat/internal/observability"
	"pairchat/internal/repository"
	"pairchat/internal/tx"
)

const notifyTimeout = 3 * time.Second

// EventPublisher fans a committed state change out to live subscribers.
// Failures are logged and swallowed here; they never surface to callers.
type EventPublisher interface {
	Publish(ctx context.Context, ev event.Event, targets ...event.ChannelKey) error
}

type Service struct {
	repo      repository.Repository
	tx        tx.Transactor
	gate      gate.ConnectionGate
	publisher EventPublisher
	notifier  notify.Notifier
	log       *zap.Logger
}

func New(
	repo repository.Repository,
	transactor tx.Transactor,
	connGate gate.ConnectionGate,
	publisher EventPublisher,
	notifier notify.Notifier,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		tx:        transactor,
		gate:      connGate,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
	}
}

// publish is the post-commit fan-out step. Errors never propagate.
func (s *Service) publish(ctx context.Context, t event.Type, msg *domain.Message, targets ...event.ChannelKey) {
	if s.publisher == nil {
		return
	}
	ev := event.FromMessage(t, msg, time.Now().UTC())
	if err := s.publisher.Publish(ctx, ev, targets...); err != nil {
		s.log.Warn("realtime publish failed",
			zap.String("message_id", msg.ID),
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
	}
}

// dispatchNotification forwards a best-effort summary to the notification
// sink on its own goroutine, detached from the request context.
func (s *Service) dispatchNotification(msg *domain.Message, recipientID string) {
	if s.notifier == nil {
		return
	}
	n := notify.Notification{
		RecipientID:    recipientID,
		SenderID:       msg.SenderID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Preview:        msg.Preview(80),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			observability.NotificationsPublished.WithLabelValues("error").Inc()
			s.log.Warn("notification publish failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			return
		}
		observability.NotificationsPublished.WithLabelValues("ok").Inc()
	}()
}
