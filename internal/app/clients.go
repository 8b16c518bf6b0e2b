package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/syncraft-backend/internal/data/db"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
	"github.com/yungbote/syncraft-backend/internal/platform/llm"
	"github.com/yungbote/syncraft-backend/internal/platform/neo4jdb"
)

type Clients struct {
	DB        *db.Service
	Cache     cache.Cache
	Neo4j     *neo4jdb.Client
	Generator llm.Generator
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := db.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.AutoMigrateAll(); err != nil {
			_ = store.Close()
			return Clients{}, fmt.Errorf("automigrate: %w", err)
		}
	}

	c, err := cache.NewFromEnv(log)
	if err != nil {
		_ = store.Close()
		return Clients{}, fmt.Errorf("init cache: %w", err)
	}

	// Neo4j is optional: nil client means no projection.
	graphClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j unavailable; tree projection disabled", "error", err)
		graphClient = nil
	}

	gen, err := llm.New(llm.ConfigFromEnv(log), log)
	if err != nil {
		_ = c.Close()
		_ = store.Close()
		if graphClient != nil {
			_ = graphClient.Close(context.Background())
		}
		return Clients{}, fmt.Errorf("init llm: %w", err)
	}

	return Clients{
		DB:        store,
		Cache:     c,
		Neo4j:     graphClient,
		Generator: gen,
	}, nil
}

func (c Clients) Close(log *logger.Logger) {
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Neo4j.Close(ctx); err != nil {
			log.Warn("Neo4j close failed", "error", err)
		}
		cancel()
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Warn("Cache close failed", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Warn("Database close failed", "error", err)
		}
	}
}
