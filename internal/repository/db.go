package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the configured database and migrates the job table.
// Parameters:
//   - cfg: database configuration; driver is "sqlite" or "postgres".
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.LogSQL {
		level = gormlogger.Info
	}
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	logger.Info("Initializing job database with driver %q", cfg.Driver)

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		// Simple protocol keeps transaction poolers (pgbouncer, Supabase 6543) working.
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DSN(),
			PreferSimpleProtocol: true,
		}), gormConfig)
	default:
		db, err = openSQLite(cfg, gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.Job{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return db, nil
}

func openSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}
	// WAL lets status reads proceed while a job goroutine writes progress.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	return db, nil
}

// NewJobStore builds the JobStore selected by cfg.Driver.
// The returned close function releases the database handle, if any.
func NewJobStore(ctx context.Context, cfg *config.DatabaseConfig) (JobStore, func() error, error) {
	if cfg.Driver == "memory" {
		logger.CtxInfo(ctx, "Using in-memory job store; jobs will not survive restarts")
		return NewMemoryJobStore(), func() error { return nil }, nil
	}
	db, err := InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return NewJobRepository(db), sqlDB.Close, nil
}
