package infrastructure

import (
	"context"
	"fmt"
	"time"

	"user-contract-service/internal/adapter/db/gormdb"
	"user-contract-service/internal/adapter/db/memory"
	"user-contract-service/internal/config"
	"user-contract-service/internal/domain/user"
	usecase "user-contract-service/internal/usecase/user"
	"user-contract-service/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase opens the SQL database selected by Store.Driver
func NewDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Store.Driver {
	case "postgres":
		dialector = pgdriver.Open(cfg.DB.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Store.SQLiteDSN)
	default:
		return nil, fmt.Errorf("store driver %q is not a SQL database", cfg.Store.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Store.Driver == "postgres" {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetime) * time.Second)
	}

	l.Info("database connected successfully",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("max_open_conns", cfg.DB.MaxOpenConns),
	)

	return db, nil
}

// CloseDatabase closes the database connection
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// NewUserStore builds the user store selected by Store.Driver and loads the
// seed users into it. The returned *gorm.DB is nil for the memory store.
func NewUserStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (usecase.Repository, *gorm.DB, error) {
	if cfg.Store.Driver == "memory" {
		repo := memory.NewSeededUserRepo()
		l.Info("using in-memory user store", zap.Int("users", repo.Len()))
		return repo, nil, nil
	}

	db, err := NewDatabase(cfg, l)
	if err != nil {
		return nil, nil, err
	}

	repo := gormdb.NewUserRepo(db, l)
	if err := repo.Migrate(ctx); err != nil {
		_ = CloseDatabase(db)
		return nil, nil, err
	}
	if err := repo.Seed(ctx, user.SeedUsers()); err != nil {
		_ = CloseDatabase(db)
		return nil, nil, err
	}

	return repo, db, nil
}
