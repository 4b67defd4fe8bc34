// Package hub fans out committed message state changes to live websocket
// clients. Delivery is best effort: the hub is never consulted for message
// truth and a publish failure never fails the originating operation.
package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pairchat/internal/event"
	"pairchat/internal/observability"
)

const publishTimeout = 2 * time.Second

type Hub struct {
	registry *Registry
	router   *Router // nil when running single-instance
	log      *zap.Logger
}

func New(registry *Registry, router *Router, log *zap.Logger) *Hub {
	return &Hub{registry: registry, router: router, log: log}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Publish serializes the event once and delivers it to every local
// subscriber of the target channels, then forwards it to peer instances.
// Callers invoke it synchronously after commit, so per-conversation order of
// publishes matches commit order and each session's FIFO queue preserves it.
func (h *Hub) Publish(ctx context.Context, ev event.Event, targets ...event.ChannelKey) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.deliverLocal(payload, targets)

	if h.router != nil {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.String()
		}
		rctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := h.router.Publish(rctx, names, payload); err != nil {
			observability.FanoutPublishFailures.WithLabelValues("redis").Inc()
			h.log.Warn("cross-instance publish failed",
				zap.String("conversation_id", ev.ConversationID),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// Run attaches the cross-instance subscription. No-op without a router.
func (h *Hub) Run(ctx context.Context) {
	if h.router == nil {
		return
	}
	h.router.Subscribe(ctx, func(channels []string, payload []byte) {
		targets := make([]event.ChannelKey, 0, len(channels))
		for _, name := range channels {
			key, err := event.ParseChannelKey(name)
			if err != nil {
				h.log.Error("dropping frame with bad channel key", zap.Error(err))
				continue
			}
			targets = append(targets, key)
		}
		h.deliverLocal(payload, targets)
	})
}

func (h *Hub) deliverLocal(payload []byte, targets []event.ChannelKey) {
	for _, s := range h.registry.Subscribers(targets...) {
		if !s.TrySend(payload) {
			observability.FanoutPublishFailures.WithLabelValues("session").Inc()
		}
	}
}
