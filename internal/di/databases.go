package di

import (
	"fmt"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the plans database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// plans.db - Generated rebalancing plans and their status history
	plansDB, err := database.New(database.Config{
		Path:    cfg.PlansDBPath(),
		Profile: database.ProfileStandard,
		Name:    "plans",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plans database: %w", err)
	}
	container.PlansDB = plansDB

	if err := plansDB.Migrate(); err != nil {
		plansDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", plansDB.Name(), err)
	}

	log.Info().Str("path", plansDB.Path()).Msg("Plans database initialized and schema applied")

	return container, nil
}
