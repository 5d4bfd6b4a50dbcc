package main

import (
	"context"
	"fmt"

	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/database"
	"github.com/starrynight/startracker/internal/storage"
	gormstorage "github.com/starrynight/startracker/internal/storage/gorm"
	"github.com/starrynight/startracker/internal/storage/memory"
)

// initStorage opens the configured backend and runs its Init.
func (a *app) initStorage(ctx context.Context) error {
	storageCfg := config.GetStorageConfig()

	backend, err := a.createStorageBackend(storageCfg)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(ctx); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err, "type", storageCfg.Type)
		return err
	}
	a.storage = backend
	return nil
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "memory":
		a.logger.Info("Memory storage backend initialized", "catalog", storageCfg.Memory.CatalogPath)
		return memory.New(storageCfg.Memory), nil

	case "postgres":
		a.db = database.NewManager(a.dbLogger)
		a.db.SqliteFilePath = storageCfg.SQLite.Path
		if err := a.db.Connect(storageCfg.Postgres); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if a.db.ShouldSaveLocal {
			a.logger.Warn("Postgres unreachable, using SQLite", "path", storageCfg.SQLite.Path)
		} else {
			a.logger.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host)
		}

	case "", "sqlite":
		a.db = database.NewManager(a.dbLogger)
		if err := a.db.ConnectSQLite(storageCfg.SQLite.Path); err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		if storageCfg.SQLite.Path == "" {
			a.db.SqliteFilePath = storageCfg.SQLite.DumpPath
		}
		a.logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}

	return gormstorage.New(gormstorage.Dependencies{
		DB:        a.db.DB,
		Table:     config.GetCatalogConfig().Table,
		BatchSize: config.GetIndexConfig().BatchSize,
		Logger:    a.logger,
	}), nil
}

// closeStorage closes the backend, dumps an in-memory SQLite database when a
// dump path is set and releases the connection.
func (a *app) closeStorage() {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
		if exp, ok := a.storage.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
			a.logger.Info("Exported ledger", "path", exp.ExportedFilePath())
		}
	}
	if a.db == nil {
		return
	}
	if a.db.ShouldSaveLocal && config.GetStorageConfig().SQLite.Path == "" && a.db.SqliteFilePath != "" {
		if err := a.db.DumpMemoryToDisk(); err != nil {
			a.logger.Error("Failed to dump SQLite database", "error", err)
		} else {
			a.logger.Info("Dumped SQLite database", "path", a.db.SqliteFilePath)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}
