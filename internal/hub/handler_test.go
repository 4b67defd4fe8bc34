package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"pairchat/internal/domain"
)

type stubAuthorizer struct {
	errs map[string]error
}

func (a stubAuthorizer) CanSubscribe(ctx context.Context, conversationID, userID string) error {
	return a.errs[conversationID]
}

func TestHandler_JoinAcks(t *testing.T) {
	h := New(NewRegistry(), nil, zap.NewNop())
	handler := NewHandler(h, stubAuthorizer{errs: map[string]error{
		"missing": domain.ErrNotFound,
		"denied":  domain.ErrForbidden,
	}}, func(r *http.Request) string { return "user1" }, zap.NewNop())

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	tests := []struct {
		name    string
		conv    string
		wantOK  bool
		wantErr string
	}{
		{"member joins", "open", true, ""},
		{"missing conversation", "missing", false, "not_found"},
		{"denied conversation", "denied", false, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := conn.WriteJSON(controlFrame{Action: "join", ConversationID: tt.conv})
			assert.NoError(t, err)

			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var ack controlAck
			assert.NoError(t, conn.ReadJSON(&ack))
			assert.Equal(t, "join", ack.Action)
			assert.Equal(t, tt.conv, ack.ConversationID)
			assert.Equal(t, tt.wantOK, ack.OK)
			assert.Equal(t, tt.wantErr, ack.Error)
		})
	}
}
