package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/observability/metrics"
	workspacerepo "knowledge-hub/internal/workspace/repository"
)

const membershipCheckTimeout = 5 * time.Second

// Hub owns every live session and serializes register and unregister through
// its run loop. Room membership lives in the registry; the hub decides who
// may enter a room by asking the store, never the token.
type Hub struct {
	registry   *Registry
	workspaces workspacerepo.Repository
	log        *logger.Logger

	sessions     sync.Map
	sessionCount atomic.Int64
	register     chan *Session
	unregister   chan *Session
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewHub(registry *Registry, workspaces workspacerepo.Repository, log *logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry:   registry,
		workspaces: workspaces,
		log:        log,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Register(session *Session) {
	h.register <- session
}

func (h *Hub) Unregister(session *Session) {
	h.unregister <- session
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.ctx.Done():
			h.shutdown()
			return

		case session := <-h.register:
			h.sessions.Store(session.id, session)
			total := h.sessionCount.Add(1)
			metrics.ActiveSessions.Inc()
			h.log.WithFields(session.ctx, logger.Fields{
				"session_id": session.id,
				"user_id":    session.claims.UserID,
				"total":      total,
				"action":     "ws_register",
			}).Info("websocket session registered")

		case session := <-h.unregister:
			h.handleUnregister(session)
		}
	}
}

// HandleFrame runs on the session's read goroutine.
func (h *Hub) HandleFrame(session *Session, frame Frame) {
	switch frame.Type {
	case TypeJoin:
		h.handleJoin(session, frame)
	case TypeLeave:
		h.handleLeave(session, frame)
	default:
		h.sendError(session, commonerrors.ErrInternal.Code(), "unsupported frame type: "+frame.Type.String())
	}
}

func (h *Hub) handleJoin(session *Session, frame Frame) {
	var payload RoomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.WorkspaceID == "" {
		metrics.RoomJoinsTotal.WithLabelValues("invalid").Inc()
		h.sendError(session, "INVALID_JOIN", "join requires a workspace_id")
		return
	}

	// Membership is checked against the store on every join, so a stale
	// token never opens a room its holder was removed from.
	ctx, cancel := context.WithTimeout(session.ctx, membershipCheckTimeout)
	defer cancel()

	isMember, err := h.workspaces.IsMember(ctx, payload.WorkspaceID, session.claims.UserID)
	if err != nil {
		metrics.RoomJoinsTotal.WithLabelValues("error").Inc()
		h.log.WithFields(session.ctx, logger.Fields{
			"session_id":   session.id,
			"user_id":      session.claims.UserID,
			"workspace_id": payload.WorkspaceID,
			"action":       "ws_join_membership_check_failed",
		}).Errorf("websocket join membership check failed: %v", err)
		h.sendError(session, commonerrors.ErrStoreUnavailable.Code(), commonerrors.ErrStoreUnavailable.Message())
		return
	}
	if !isMember {
		metrics.RoomJoinsTotal.WithLabelValues("denied").Inc()
		h.log.WithFields(session.ctx, logger.Fields{
			"session_id":   session.id,
			"user_id":      session.claims.UserID,
			"workspace_id": payload.WorkspaceID,
			"action":       "ws_join_denied",
		}).Warn("websocket join denied: not a workspace member")
		h.sendError(session, commonerrors.ErrNotAMember.Code(), commonerrors.ErrNotAMember.Message())
		return
	}

	h.registry.Join(payload.WorkspaceID, session)
	metrics.RoomJoinsTotal.WithLabelValues("ok").Inc()
	h.log.WithFields(session.ctx, logger.Fields{
		"session_id":   session.id,
		"user_id":      session.claims.UserID,
		"workspace_id": payload.WorkspaceID,
		"action":       "ws_join",
	}).Info("websocket session joined room")

	h.sendFrame(session, TypeJoined, RoomPayload{WorkspaceID: payload.WorkspaceID})
}

func (h *Hub) handleLeave(session *Session, frame Frame) {
	var payload RoomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.WorkspaceID == "" {
		h.sendError(session, "INVALID_LEAVE", "leave requires a workspace_id")
		return
	}

	h.registry.Leave(payload.WorkspaceID, session)
	h.log.WithFields(session.ctx, logger.Fields{
		"session_id":   session.id,
		"user_id":      session.claims.UserID,
		"workspace_id": payload.WorkspaceID,
		"action":       "ws_leave",
	}).Info("websocket session left room")

	h.sendFrame(session, TypeLeft, RoomPayload{WorkspaceID: payload.WorkspaceID})
}

func (h *Hub) handleUnregister(session *Session) {
	if _, ok := h.sessions.Load(session.id); !ok {
		return
	}

	h.sessions.Delete(session.id)
	h.registry.LeaveAll(session)
	session.closeSend()
	total := h.sessionCount.Add(-1)
	metrics.ActiveSessions.Dec()

	h.log.WithFields(session.ctx, logger.Fields{
		"session_id": session.id,
		"user_id":    session.claims.UserID,
		"total":      total,
		"action":     "ws_unregister",
	}).Info("websocket session unregistered")
}

func (h *Hub) sendFrame(session *Session, frameType FrameType, payload any) {
	data, err := marshalFrame(frameType, payload)
	if err != nil {
		h.log.WithFields(session.ctx, logger.Fields{
			"session_id": session.id,
			"type":       frameType.String(),
			"action":     "ws_marshal_failed",
		}).Errorf("websocket frame marshal failed: %v", err)
		return
	}
	if err := session.enqueue(data); err != nil {
		h.log.WithFields(session.ctx, logger.Fields{
			"session_id": session.id,
			"type":       frameType.String(),
			"action":     "ws_send_failed",
		}).Warnf("websocket send failed: %v", err)
	}
}

func (h *Hub) sendError(session *Session, code, message string) {
	h.sendFrame(session, TypeError, ErrorPayload{Code: code, Message: message})
}

func (h *Hub) shutdown() {
	sessions := make([]*Session, 0)
	h.sessions.Range(func(key, value any) bool {
		sessions = append(sessions, value.(*Session))
		return true
	})

	shutdownFrame, err := json.Marshal(Frame{Type: TypeShutdown})
	if err != nil {
		h.log.Errorf("websocket failed to marshal shutdown frame: %v", err)
	}

	for _, session := range sessions {
		if err == nil {
			if sendErr := session.enqueue(shutdownFrame); sendErr != nil {
				h.log.WithFields(session.ctx, logger.Fields{
					"session_id": session.id,
					"action":     "ws_shutdown_notify",
				}).Warnf("websocket shutdown notification failed: %v", sendErr)
			}
		}
		h.registry.LeaveAll(session)
		session.closeSend()
		h.sessions.Delete(session.id)
		metrics.ActiveSessions.Dec()
	}
	h.sessionCount.Store(0)

	h.log.Infof("websocket hub shutdown completed sessions=%d", len(sessions))
}

// Shutdown stops the run loop, which closes every session after a
// best-effort shutdown notice.
func (h *Hub) Shutdown() {
	h.cancel()
}
