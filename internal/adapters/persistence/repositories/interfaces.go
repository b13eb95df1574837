package repositories

import (
	"context"

	"ministry-assetloan/internal/adapters/persistence/models"
)

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	Roles    []string
	Division string
	Active   *bool
}

// UserRepository is the account store used by auth, user admin and the
// workflow services when they resolve actors
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
