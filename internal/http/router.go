package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/syncraft-backend/internal/http/handlers"
	httpMW "github.com/yungbote/syncraft-backend/internal/http/middleware"
	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	UserHandler    *httpH.UserHandler
	SessionHandler *httpH.SessionHandler
	NodeHandler    *httpH.NodeHandler
	ContextHandler *httpH.ContextHandler
	QAHandler      *httpH.QAHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.HealthHandler != nil {
		api.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Sessions
		if h := cfg.SessionHandler; h != nil {
			protected.POST("/sessions", h.CreateSession)
			protected.GET("/sessions", h.ListSessions)
			protected.GET("/sessions/:id", h.GetSession)
			protected.PUT("/sessions/:id", h.UpdateSession)
			protected.DELETE("/sessions/:id", h.DeleteSession)
			protected.GET("/sessions/:id/main_context", h.GetMainContext)
			protected.GET("/sessions/:id/tree", h.GetTree)
			protected.GET("/sessions/:id/contexts", h.ListContexts)
		}

		// Nodes
		if h := cfg.NodeHandler; h != nil {
			protected.POST("/nodes", h.CreateNode)
			protected.POST("/nodes/with_context_update", h.CreateNodeWithContext)
			protected.GET("/nodes/:id", h.GetNode)
			protected.PUT("/nodes/:id", h.UpdateNode)
			protected.DELETE("/nodes/:id", h.DeleteNode)
			protected.GET("/nodes/:id/children", h.ListChildren)
			protected.GET("/nodes/:id/descendants", h.ListDescendants)
			protected.GET("/nodes/:id/path", h.GetPath)
			protected.GET("/nodes/:id/contexts", h.ListContexts)
			protected.GET("/nodes/:id/qa_pairs", h.ListQAPairs)
			protected.POST("/nodes/:id/ask", h.Ask)
		}

		// Contexts
		if h := cfg.ContextHandler; h != nil {
			protected.POST("/contexts", h.CreateContext)
			protected.GET("/contexts/by-context-id/:context_id", h.GetByContextID)
			protected.GET("/contexts/:id", h.GetContext)
			protected.PUT("/contexts/:id", h.UpdateContext)
			protected.DELETE("/contexts/:id", h.DeleteContext)
			protected.GET("/contexts/:id/nodes", h.ListNodes)
			protected.POST("/contexts/:id/nodes/:node_id", h.AddNode)
			protected.DELETE("/contexts/:id/nodes/:node_id", h.RemoveNode)
		}

		// QA pairs
		if h := cfg.QAHandler; h != nil {
			protected.POST("/qa_pairs", h.CreateQAPair)
			protected.GET("/qa_pairs/:id", h.GetQAPair)
			protected.PUT("/qa_pairs/:id", h.UpdateQAPair)
			protected.DELETE("/qa_pairs/:id", h.DeleteQAPair)
			protected.POST("/qa_pairs/:id/messages", h.AddMessage)
			protected.POST("/qa_pairs/:id/view", h.RecordView)
			protected.GET("/search/qa_pairs", h.Search)
		}
	}

	return r
}
