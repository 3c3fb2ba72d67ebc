package gormdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"user-contract-service/internal/domain/user"
)

// UserRepo implements the user Repository on top of GORM.
// It works with any GORM dialect; the provider wires postgres or sqlite.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false"` // Seeded identifier, never generated
	Name  string `gorm:"not null"`                       // User's full name
	Email string `gorm:"not null"`                       // User's email address
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func (r *UserRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Seed inserts the given users, leaving rows whose id already exists untouched.
// Running it more than once is safe.
func (r *UserRepo) Seed(ctx context.Context, users []user.User) error {
	if len(users) == 0 {
		return nil
	}

	models := make([]UserSchema, len(users))
	for i, u := range users {
		models[i] = UserSchema{ID: u.ID, Name: u.Name, Email: u.Email}
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models)
	if res.Error != nil {
		r.log.Error("failed to seed users", zap.Error(res.Error))
		return fmt.Errorf("failed to seed users: %w", res.Error)
	}

	r.log.Info("users seeded", zap.Int("requested", len(users)), zap.Int64("inserted", res.RowsAffected))
	return nil
}

// GetByID retrieves a user by id, returning (nil, nil) when no row matches.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user.User{
		ID:    model.ID,
		Name:  model.Name,
		Email: model.Email,
	}, nil
}
