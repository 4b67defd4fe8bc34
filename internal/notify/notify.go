// Package notify forwards "a message was sent" summaries to the external
// notification dispatcher. Delivery is fire-and-forget: failures are logged
// by the caller and never affect the committed send.
package notify

import "context"

// Notification is the summary handed to the notification sink.
type Notification struct {
	RecipientID    string `json:"recipient_id"`
	SenderID       string `json:"sender_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Preview        string `json:"preview"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
