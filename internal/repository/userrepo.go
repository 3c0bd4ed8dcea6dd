// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/slushbook/internal/model"
)

// UserRepository provides access to accounts for the auth collaborator.
type UserRepository interface {
	// Create inserts a new user; a taken email is errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SetRole changes a user's role.
	SetRole(ctx context.Context, id string, role model.Role) error
}
