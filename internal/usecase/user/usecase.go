package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "user-contract-service/internal/domain/user"
	pkgerrors "user-contract-service/pkg/errors"
	"user-contract-service/pkg/logger"
)

// Repository defines the read-only data access the use case needs.
// GetByID returns (nil, nil) when no user has the given id.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// UserUsecase implements the business logic for user lookups.
type UserUsecase struct {
	repo Repository
	log  *zap.Logger
}

// New creates a new instance of UserUsecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *UserUsecase {
	return &UserUsecase{repo: r, log: log}
}

// GetUser retrieves a user by ID. Absence is reported as a NotFoundError;
// any id is a valid lookup key.
func (uc *UserUsecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		log.Debug("user not found", zap.Int64("id", in.ID))
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	return &GetUserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}, nil
}
