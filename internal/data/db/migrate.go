package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(conversation.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto migrations", "driver", s.driver)
	return AutoMigrateAll(s.db)
}
