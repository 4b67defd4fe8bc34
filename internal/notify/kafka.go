package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes notification summaries to a Kafka topic consumed
// by the external notification dispatcher.
type KafkaNotifier struct {
	w *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notification.RecipientID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error { return n.w.Close() }
