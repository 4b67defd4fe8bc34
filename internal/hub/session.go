package hub

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	SendQueueSize = 128
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// Session is one live client connection. It holds no message truth: only a
// send queue and the ephemeral identity of the connection.
type Session struct {
	ID       string
	UserID   string
	DeviceID string

	conn      *websocket.Conn
	SendQueue chan []byte
	done      chan struct{}
	closed    atomic.Int32
	log       *zap.Logger
}

func NewSession(id, userID, deviceID string, conn *websocket.Conn, log *zap.Logger) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		DeviceID:  deviceID,
		conn:      conn,
		SendQueue: make(chan []byte, SendQueueSize),
		done:      make(chan struct{}),
		log: log.With(
			zap.String("user_id", userID),
			zap.String("device_id", deviceID),
			zap.String("session_id", id),
		),
	}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// TrySend enqueues without blocking. A subscriber that cannot keep up is
// disconnected rather than allowed to stall delivery to anyone else.
func (s *Session) TrySend(msg []byte) bool {
	if s.closed.Load() == 1 {
		return false
	}
	select {
	case s.SendQueue <- msg:
		return true
	default:
		s.log.Warn("session backpressure overflow, dropping connection")
		s.CloseWithReason(websocket.CloseInternalServerErr, "backpressure overflow")
		return false
	}
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}

	s.log.Info("session closing", zap.Int("code", code), zap.String("reason", reason))
	close(s.done)

	if s.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.conn.Close()
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg, ok := <-s.SendQueue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Warn("session write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Warn("session ping error", zap.Error(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
