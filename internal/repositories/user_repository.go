package repositories

import (
	"context"

	"github.com/vidvault/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}
