package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/aggregates"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type Repos struct {
	Set        repos.Set
	Aggregates aggregates.Set
}

func wireRepos(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics) Repos {
	log.Info("Wiring repos...")
	set := repos.NewSet(db, log)
	return Repos{
		Set: set,
		Aggregates: aggregates.NewSet(aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		}, set),
	}
}
