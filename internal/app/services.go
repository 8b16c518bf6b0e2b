package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/graph"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Sessions services.SessionService
	Nodes    services.NodeService
	Contexts services.ContextService
	QA       services.QAService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, services.AuthConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		AccessTTL: cfg.AccessTokenTTL,
		Disabled:  cfg.AuthDisabled,
		LocalUser: cfg.LocalUserID,
		LocalName: cfg.LocalUsername,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	projector := graph.NewTreeProjector(c.Neo4j, log)
	aggs := r.Aggregates
	return Services{
		Auth:     auth,
		Sessions: services.NewSessionService(db, log, r.Set, aggs.Sessions, projector, c.Cache),
		Nodes:    services.NewNodeService(db, log, r.Set, aggs.Tree, projector, c.Cache),
		Contexts: services.NewContextService(db, log, r.Set, aggs.Contexts, c.Cache),
		QA:       services.NewQAService(db, log, r.Set, aggs.QA, c.Generator, c.Cache),
	}, nil
}
