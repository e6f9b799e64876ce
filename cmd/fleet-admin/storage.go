package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"fleet-admin/internal/config"
	"fleet-admin/internal/db"
	"fleet-admin/internal/repository"
)

// openStateRepository returns the configured state store and a function that
// releases its resources.
func openStateRepository(cfg *config.Config, log zerolog.Logger) (repository.StateRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		database, err := db.OpenSQLite(cfg.Storage.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStateRepository(database), func() { database.Close() }, nil
	case config.StoragePostgres:
		database, err := db.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := database.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewPostgresStateRepository(database), closeFn, nil
	case config.StorageFile:
		log.Info().Str("path", cfg.Storage.Path).Msg("using file state storage")
		return repository.NewFileStateRepository(cfg.Storage.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
