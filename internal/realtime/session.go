package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"knowledge-hub/internal/auth"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
)

// Config bounds every per-session timer and buffer. Values come from the
// environment; see config.Load.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBufferSize int
	SendTimeout    time.Duration
}

// Session is one authenticated websocket connection. A user may hold several
// sessions at once; each joins rooms independently.
type Session struct {
	id     string
	hub    *Hub
	conn   *gorillaWS.Conn
	claims auth.Claims
	send   chan []byte
	cfg    Config
	log    *logger.Logger
	ctx    context.Context

	closeMu sync.RWMutex
	closed  bool
}

func NewSession(ctx context.Context, hub *Hub, conn *gorillaWS.Conn, id string, claims auth.Claims, cfg Config, log *logger.Logger) *Session {
	return &Session{
		id:     id,
		hub:    hub,
		conn:   conn,
		claims: claims,
		send:   make(chan []byte, cfg.SendBufferSize),
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Claims() auth.Claims { return s.claims }

func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// enqueue hands a marshalled frame to the write pump. It fails with
// ErrSessionUnreachable when the session is closed or its buffer stays full
// past the send timeout; the caller decides what a failed delivery means.
func (s *Session) enqueue(data []byte) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return commonerrors.ErrSessionUnreachable
	}

	timer := time.NewTimer(s.cfg.SendTimeout)
	defer timer.Stop()

	select {
	case s.send <- data:
		return nil
	case <-timer.C:
		return commonerrors.ErrSessionUnreachable
	}
}

// closeSend marks the session closed and releases the write pump. Idempotent;
// only the hub calls it.
func (s *Session) closeSend() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Disconnect tears down the transport. The read pump observes the closed
// connection and runs the normal unregister path.
func (s *Session) Disconnect() {
	s.conn.Close()
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		_, messageBytes, err := s.conn.ReadMessage()
		if err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseAbnormalClosure) {
				s.log.WithFields(s.ctx, logger.Fields{
					"session_id": s.id,
					"user_id":    s.claims.UserID,
					"action":     "ws_read_error",
				}).Warnf("websocket read error: %v", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(messageBytes, &frame); err != nil {
			s.log.WithFields(s.ctx, logger.Fields{
				"session_id": s.id,
				"user_id":    s.claims.UserID,
				"action":     "ws_invalid_frame",
			}).Warnf("websocket invalid frame: %v", err)
			continue
		}

		s.hub.HandleFrame(s, frame)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				s.conn.WriteMessage(gorillaWS.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(gorillaWS.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(gorillaWS.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
