package di

import (
	"fmt"

	"github.com/aristath/etfbacktest/internal/clientdata"
	"github.com/aristath/etfbacktest/internal/config"
	"github.com/aristath/etfbacktest/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the price cache database and applies migrations.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}

	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	log.Info().Str("path", cacheDB.Path()).Msg("Cache database ready")

	return &Container{
		CacheDB:   cacheDB,
		CacheRepo: clientdata.NewRepository(cacheDB.Conn()),
	}, nil
}
