package realtime

import (
	"context"
	"net/http"

	gorillaWS "github.com/gorilla/websocket"

	"knowledge-hub/internal/auth"
	"knowledge-hub/internal/common/crypto"
	commonerrors "knowledge-hub/internal/common/errors"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
)

// Handler upgrades /ws requests. The token is verified before the upgrade:
// a request that fails verification is answered with a plain HTTP 401 and no
// websocket connection ever exists for it.
type Handler struct {
	hub           *Hub
	authenticator *auth.Authenticator
	idGenerator   crypto.IDGenerator
	cfg           Config
	log           *logger.Logger
	upgrader      gorillaWS.Upgrader
}

func NewHandler(hub *Hub, authenticator *auth.Authenticator, idGenerator crypto.IDGenerator, cfg Config, log *logger.Logger) *Handler {
	return &Handler{
		hub:           hub,
		authenticator: authenticator,
		idGenerator:   idGenerator,
		cfg:           cfg,
		log:           log,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := auth.ExtractToken(r)
	if !ok {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "ws_handshake_missing_token",
		}).Warn("websocket handshake rejected: missing token")
		commonhttp.HandleError(w, r, commonerrors.ErrTokenMissing, h.log)
		return
	}

	claims, err := h.authenticator.Verify(tokenString)
	if err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "ws_handshake_verify_failed",
		}).Warnf("websocket handshake rejected: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.WithFields(r.Context(), logger.Fields{
			"user_id": claims.UserID,
			"action":  "ws_upgrade_failed",
		}).Warnf("websocket upgrade failed: %v", err)
		return
	}

	// The request context dies with the handshake; keep only its trace id.
	ctx := logger.WithTraceID(context.Background(), logger.TraceIDFromContext(r.Context()))

	session := NewSession(ctx, h.hub, conn, h.idGenerator.NewID(), claims, h.cfg, h.log)
	h.hub.Register(session)
	session.Start()
}
