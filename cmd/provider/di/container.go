package di

import (
	"context"
	"errors"
	"fmt"

	"user-contract-service/cmd/provider/infrastructure"
	ginhandler "user-contract-service/internal/adapter/gin/handler"
	"user-contract-service/internal/adapter/pactstate"
	"user-contract-service/internal/config"
	"user-contract-service/internal/usecase/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	DB           *gorm.DB
	Repo         user.Repository
	UserUC       user.Usecase
	UserHandler  *ginhandler.UserHandler
	StateHandler *ginhandler.ProviderStateHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, db, err := infrastructure.NewUserStore(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user store: %w", err)
	}

	userUC := user.New(repo, l)

	c := &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		Repo:        repo,
		UserUC:      userUC,
		UserHandler: ginhandler.NewUserHandler(userUC, l),
	}

	if cfg.App.PactStateEndpointEnabled {
		c.StateHandler = ginhandler.NewProviderStateHandler(pactstate.Handlers(repo, l), l)
		l.Warn("provider state endpoint enabled; do not expose this in production")
	}

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
