// Package pactstate establishes the provider states named by user contracts.
package pactstate

import (
	"context"
	"fmt"

	"user-contract-service/internal/contract"
	"user-contract-service/internal/pactfixture"
	"user-contract-service/internal/usecase/user"

	"go.uber.org/zap"
)

// Handlers returns the state handlers backed by repo. The store is seeded at
// startup and read-only, so setup checks the required records are present
// and teardown has nothing to undo.
func Handlers(repo user.Repository, log *zap.Logger) contract.StateHandlers {
	return contract.StateHandlers{
		pactfixture.StateUserOneExists: requireUser(repo, 1, log),
	}
}

func requireUser(repo user.Repository, id int64, log *zap.Logger) contract.StateHandler {
	return func(ctx context.Context, setup bool, state contract.ProviderState) error {
		if !setup {
			return nil
		}

		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to look up user %d: %w", id, err)
		}
		if u == nil {
			return fmt.Errorf("user %d is not in the store", id)
		}

		log.Debug("provider state ready", zap.String("state", state.Name), zap.Int64("user_id", id))
		return nil
	}
}
