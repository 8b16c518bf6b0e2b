package app

import (
	"github.com/yungbote/syncraft-backend/internal/http"
	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) http.RouterConfig {
	return http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthMiddleware: middleware.Auth,
		UserHandler:    handlers.User,
		SessionHandler: handlers.Session,
		NodeHandler:    handlers.Node,
		ContextHandler: handlers.Context,
		QAHandler:      handlers.QA,
		HealthHandler:  handlers.Health,
	}
}
