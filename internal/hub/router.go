package hub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "pairchat:events"

// frame is the cross-instance wire format: the serialized event plus the
// channel keys it targets, tagged with the publishing instance so the origin
// can skip its own broadcast.
type frame struct {
	Origin   string          `json:"origin"`
	Channels []string        `json:"channels"`
	Payload  json.RawMessage `json:"payload"`
}

// Router bridges fan-out across hub instances over redis pub/sub. Local
// delivery never depends on it.
type Router struct {
	client     *redis.Client
	instanceID string
	log        *zap.Logger
}

func NewRouter(client *redis.Client, instanceID string, log *zap.Logger) *Router {
	return &Router{client: client, instanceID: instanceID, log: log}
}

func (r *Router) Publish(ctx context.Context, channels []string, payload []byte) error {
	f, err := json.Marshal(frame{
		Origin:   r.instanceID,
		Channels: channels,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventsChannel, f).Err()
}

// Subscribe consumes frames published by other instances and hands them to
// handler. It returns after spawning the consumer goroutine.
func (r *Router) Subscribe(ctx context.Context, handler func(channels []string, payload []byte)) {
	pubsub := r.client.Subscribe(ctx, eventsChannel)

	go func() {
		r.log.Info("router subscribed", zap.String("channel", eventsChannel))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("router subscription stopping")
				return
			case msg, ok := <-ch:
				if !ok {
					r.log.Warn("router pubsub channel closed")
					return
				}
				var f frame
				if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
					r.log.Error("router malformed frame", zap.Error(err))
					continue
				}
				if f.Origin == r.instanceID {
					continue
				}
				handler(f.Channels, f.Payload)
			}
		}
	}()
}
