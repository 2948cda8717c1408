package main

import (
	"fmt"
	"path/filepath"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/database"
	"github.com/gw2overlay/linkbridge/internal/storage"
	"github.com/gw2overlay/linkbridge/internal/storage/memory"
	pgstorage "github.com/gw2overlay/linkbridge/internal/storage/postgres"
	sqlitestorage "github.com/gw2overlay/linkbridge/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, recorderCfg config.RecorderConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend selected", "host", storageCfg.Postgres.Host)
		return pgstorage.New(pgstorage.Dependencies{
			Config:        storageCfg.Postgres,
			Logger:        SlogManager.Component("storage"),
			DBLogger:      InfraLogger,
			FlushInterval: recorderCfg.FlushInterval,
			QueueLimit:    recorderCfg.QueueSize,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(storageCfg.Memory.OutputDir, fmt.Sprintf("%s_%s.db", appName, SessionStart.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval:  storageCfg.SQLite.DumpInterval,
			DumpPath:      dumpPath,
			FlushInterval: recorderCfg.FlushInterval,
			QueueLimit:    recorderCfg.QueueSize,
		}, SlogManager.Component("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected", "dumpPath", dumpPath)
		if previous, err := database.BackupDBPaths(filepath.Dir(dumpPath)); err == nil && len(previous) > 0 {
			Logger.Info("Found earlier recordings", "count", len(previous), "dir", filepath.Dir(dumpPath))
		}
		return backend, nil

	case "memory", "":
		Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
