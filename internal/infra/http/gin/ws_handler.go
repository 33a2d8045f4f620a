package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	domainuser "idpsupport/internal/domain/user"
	"idpsupport/internal/infra/security"
	"idpsupport/internal/realtime"
)

// WSHandler upgrades authenticated requests into chat event-channel sessions.
type WSHandler struct {
	Coordinator    *realtime.Coordinator
	Verifier       security.TokenVerifier
	AllowedOrigins []string
	Logger         *slog.Logger
}

func (h WSHandler) Handle(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket upgrade failed", "error", err)
		}
		return
	}

	client := realtime.NewClient(conn, userID, h.Coordinator, h.Logger)
	if h.Logger != nil {
		h.Logger.Info("websocket connected", "user_id", string(userID), "session_id", client.ID())
	}
	client.Run(c.Request.Context())
	if h.Logger != nil {
		h.Logger.Info("websocket disconnected", "user_id", string(userID), "session_id", client.ID())
	}
}

// authenticate accepts the bearer header or a token query parameter, since
// browser WebSocket clients cannot set custom headers.
func (h WSHandler) authenticate(c *gin.Context) (domainuser.ID, bool) {
	if p, ok := currentPrincipal(c); ok {
		return p.ID, true
	}
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("token"))
	}
	if raw == "" {
		return "", false
	}
	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket token rejected", "error", err)
		}
		return "", false
	}
	return domainuser.ID(claims.Subject), true
}

func (h WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
