package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/personachat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/personachat-backend/internal/http/middleware"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	// MetricsRegistry enables HTTP metrics when non-nil.
	MetricsRegistry prometheus.Registerer

	AuthMiddleware *httpMW.AuthMiddleware

	PersonaChatHandler  *httpH.PersonaChatHandler
	ConversationHandler *httpH.ConversationHandler
	AdminHandler        *httpH.AdminHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.MetricsRegistry))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Chat
		if cfg.PersonaChatHandler != nil {
			protected.POST("/personas/:id/chat", cfg.PersonaChatHandler.SendMessage)
			protected.PUT("/messages/:id", cfg.PersonaChatHandler.EditMessage)
		}

		// Conversations
		if cfg.ConversationHandler != nil {
			protected.GET("/conversations", cfg.ConversationHandler.List)
			protected.GET("/conversations/:id/messages", cfg.ConversationHandler.Messages)
			protected.PATCH("/conversations/:id", cfg.ConversationHandler.Patch)
			protected.DELETE("/conversations/:id", cfg.ConversationHandler.Delete)
			protected.POST("/messages/:id/reactions", cfg.ConversationHandler.ToggleReaction)
		}

		// Admin
		if cfg.AdminHandler != nil {
			admin := protected.Group("/admin")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireAdmin())
			}
			admin.GET("/circuit-breakers", cfg.AdminHandler.ListBreakers)
			admin.POST("/circuit-breakers/:personaId/reset", cfg.AdminHandler.ResetBreaker)
		}
	}

	return r
}
