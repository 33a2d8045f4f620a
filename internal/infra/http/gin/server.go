package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"idpsupport/internal/infra/config"
	"idpsupport/internal/infra/obs"
)

// Handlers bundles everything NewServer mounts.
type Handlers struct {
	Chat           ChatHTTP
	WS             *WSHandler
	AuthMiddleware gin.HandlerFunc
}

// NewServer assembles the router: recovery, request id, request logging,
// CORS, the optional auth middleware, health probes, the WebSocket upgrade
// and the chat API.
func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	setGinMode(cfg.Env)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		obsMW.RequestID(),
		obsMW.LoggerMiddleware(),
		cors.New(corsConfig(cfg.AllowedOrigins)),
	)
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.WS != nil {
		router.GET("/ws", h.WS.Handle)
	}
	registerChatRoutes(router.Group("/api/v1"), h.Chat)

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func registerChatRoutes(api *gin.RouterGroup, chat ChatHTTP) {
	if chat == nil {
		return
	}
	api.POST("/chats", chat.Create)
	api.GET("/chats", chat.ListMine)
	api.GET("/chats/moderation", chat.ModerationQueue)
	api.GET("/chats/:id", chat.Get)
	api.GET("/chats/:id/messages", chat.ListMessages)
	api.PATCH("/chats/:id/moderation", chat.UpdateModeration)
	api.GET("/me/unread", chat.UnreadCount)
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
}

func setGinMode(env string) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
		gin.SetMode(gin.DebugMode)
	case "test", "testing":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}
