package repository

import (
	"context"

	"github.com/and161185/slushbook/internal/model"
)

// IngredientRepository stores the ingredient catalog.
type IngredientRepository interface {
	// Create inserts an entry; a taken name is errs.ErrAlreadyExists.
	Create(ctx context.Context, ing *model.Ingredient) error
	// Get loads an entry by id.
	Get(ctx context.Context, id string) (*model.Ingredient, error)
	// List returns the whole catalog ordered by name.
	List(ctx context.Context) ([]*model.Ingredient, error)
	// Update replaces an entry.
	Update(ctx context.Context, ing *model.Ingredient) error
	// Delete removes an entry.
	Delete(ctx context.Context, id string) error
}
