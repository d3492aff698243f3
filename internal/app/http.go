package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/http"
	httpH "github.com/yungbote/personachat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/personachat-backend/internal/http/middleware"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	PersonaChat  *httpH.PersonaChatHandler
	Conversation *httpH.ConversationHandler
	Admin        *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(db),
		PersonaChat:  httpH.NewPersonaChatHandler(services.PersonaChat),
		Conversation: httpH.NewConversationHandler(services.Conversations, services.Reactions),
		Admin:        httpH.NewAdminHandler(services.BreakerAdmin),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is empty, every authenticated request will be rejected")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireRouter(log *logger.Logger, cfg Config, reg prometheus.Registerer, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		AllowedOrigins:      cfg.AllowedOrigins,
		MetricsRegistry:     reg,
		AuthMiddleware:      middleware.Auth,
		PersonaChatHandler:  handlers.PersonaChat,
		ConversationHandler: handlers.Conversation,
		AdminHandler:        handlers.Admin,
		HealthHandler:       handlers.Health,
	})
}
