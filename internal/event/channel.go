package event

import (
	"fmt"
	"strings"
)

// ChannelKind discriminates the two live-subscription namespaces.
type ChannelKind string

const (
	KindConversation ChannelKind = "conv"
	KindUser         ChannelKind = "user"
)

// ChannelKey is a typed subscription key. Keys are only built through the
// constructors below so conversation and user namespaces can never collide.
type ChannelKey struct {
	Kind ChannelKind
	ID   string
}

func ConversationChannel(conversationID string) ChannelKey {
	return ChannelKey{Kind: KindConversation, ID: conversationID}
}

func UserChannel(userID string) ChannelKey {
	return ChannelKey{Kind: KindUser, ID: userID}
}

func (k ChannelKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// ParseChannelKey is the inverse of String, used on the cross-instance wire.
func ParseChannelKey(s string) (ChannelKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return ChannelKey{}, fmt.Errorf("malformed channel key %q", s)
	}
	switch ChannelKind(kind) {
	case KindConversation, KindUser:
		return ChannelKey{Kind: ChannelKind(kind), ID: id}, nil
	default:
		return ChannelKey{}, fmt.Errorf("unknown channel kind %q", kind)
	}
}
