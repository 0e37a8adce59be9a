package db

import (
	"fmt"

	"github.com/heliodesk/heliodesk-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Running auto migration...")
	if err := s.db.AutoMigrate(domain.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
