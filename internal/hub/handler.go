package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/event"
	"pairchat/internal/observability"
)

// SubscribeAuthorizer gates conversation-channel joins on membership.
type SubscribeAuthorizer interface {
	CanSubscribe(ctx context.Context, conversationID, userID string) error
}

// Handler upgrades client connections and drives the per-session read loop.
type Handler struct {
	hub        *Hub
	authorizer SubscribeAuthorizer
	userID     func(*http.Request) string
	log        *zap.Logger
}

func NewHandler(h *Hub, authorizer SubscribeAuthorizer, userID func(*http.Request) string, log *zap.Logger) *Handler {
	return &Handler{hub: h, authorizer: authorizer, userID: userID, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlFrame is the client -> server subscription protocol.
type controlFrame struct {
	Action         string `json:"action"` // "join" | "leave"
	ConversationID string `json:"conversation_id"`
}

type controlAck struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	if userID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = "default"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), userID, deviceID, conn, h.log)

	registry := h.hub.Registry()
	registry.Add(session)
	session.Start()

	observability.WebSocketConnectionsActive.Inc()
	h.log.Info("client connected",
		zap.String("user_id", userID),
		zap.String("device_id", deviceID),
	)

	defer func() {
		registry.Remove(session)
		session.Close()
		observability.WebSocketConnectionsActive.Dec()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.readLoop(r, session, conn)
}

func (h *Handler) readLoop(r *http.Request, session *Session, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("unexpected close", zap.Error(err))
			}
			return
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Warn("malformed control frame", zap.Error(err))
			continue
		}

		switch frame.Action {
		case "join":
			ack := controlAck{Action: "join", ConversationID: frame.ConversationID, OK: true}
			if err := h.authorizer.CanSubscribe(r.Context(), frame.ConversationID, session.UserID); err != nil {
				ack.OK = false
				ack.Error = joinError(err)
			} else {
				h.hub.Registry().Join(session, event.ConversationChannel(frame.ConversationID))
			}
			h.sendAck(session, ack)
		case "leave":
			h.hub.Registry().Leave(session, event.ConversationChannel(frame.ConversationID))
			h.sendAck(session, controlAck{Action: "leave", ConversationID: frame.ConversationID, OK: true})
		default:
			h.log.Warn("unknown control action", zap.String("action", frame.Action))
		}
	}
}

// joinError names the authorization failure so clients can tell a missing
// conversation from a denied one.
func joinError(err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return "not_found"
	}
	return "forbidden"
}

func (h *Handler) sendAck(session *Session, ack controlAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}
	session.TrySend(payload)
}
