package users

import (
	"context"

	"github.com/vposukhov/authvault/internal/server/models"
)

// Repository is the credential store consumed by the auth core. The core
// reads identity/role/status and writes only the password hash.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
}
