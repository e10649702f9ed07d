package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
