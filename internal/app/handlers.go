package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/syncraft-backend/internal/http/handlers"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	User    *httpH.UserHandler
	Session *httpH.SessionHandler
	Node    *httpH.NodeHandler
	Context *httpH.ContextHandler
	QA      *httpH.QAHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		User:    httpH.NewUserHandler(),
		Session: httpH.NewSessionHandler(log, s.Sessions, s.Contexts),
		Node:    httpH.NewNodeHandler(log, s.Nodes, s.Contexts, s.QA),
		Context: httpH.NewContextHandler(log, s.Contexts),
		QA:      httpH.NewQAHandler(log, s.QA),
	}
}
