package postgres

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/repository"
)

type ingredientDoc struct {
	Brand         string                  `json:"brand,omitempty"`
	Category      string                  `json:"category"`
	Brix          float64                 `json:"brix"`
	DensityGPerML *float64                `json:"density_g_per_ml,omitempty"`
	PH            *float64                `json:"ph,omitempty"`
	WaterActivity *float64                `json:"water_activity,omitempty"`
	Keywords      map[model.Lang][]string `json:"keywords,omitempty"`
	Links         map[string]string       `json:"links,omitempty"`
}

// IngredientRepo implements IngredientRepository using PostgreSQL.
type IngredientRepo struct{ db *DB }

var _ repository.IngredientRepository = (*IngredientRepo)(nil)

// NewIngredientRepo constructs an ingredient repository.
func NewIngredientRepo(db *DB) *IngredientRepo { return &IngredientRepo{db: db} }

func encodeIngredient(ing *model.Ingredient) ([]byte, error) {
	return json.Marshal(ingredientDoc{
		Brand:         ing.Brand,
		Category:      ing.Category,
		Brix:          ing.Brix,
		DensityGPerML: ing.DensityGPerML,
		PH:            ing.PH,
		WaterActivity: ing.WaterActivity,
		Keywords:      ing.Keywords,
		Links:         ing.Links,
	})
}

func scanIngredient(row pgx.Row) (*model.Ingredient, error) {
	var (
		ing model.Ingredient
		raw []byte
	)
	if err := row.Scan(&ing.ID, &ing.Name, &raw, &ing.CreatedAt, &ing.UpdatedAt); err != nil {
		return nil, err
	}
	var doc ingredientDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ingredient %s: decode doc: %w", ing.ID, err)
	}
	ing.Brand = doc.Brand
	ing.Category = doc.Category
	ing.Brix = doc.Brix
	ing.DensityGPerML = doc.DensityGPerML
	ing.PH = doc.PH
	ing.WaterActivity = doc.WaterActivity
	ing.Keywords = doc.Keywords
	ing.Links = doc.Links
	return &ing, nil
}

// Create inserts a catalog entry.
func (r *IngredientRepo) Create(ctx context.Context, ing *model.Ingredient) error {
	doc, err := encodeIngredient(ing)
	if err != nil {
		return err
	}
	const q = `INSERT INTO ingredients (id, name, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.Pool.Exec(ctx, q, ing.ID, ing.Name, doc, ing.CreatedAt, ing.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("ingredient %q: %w", ing.Name, errs.ErrAlreadyExists)
	}
	return err
}

// Get selects an entry by id.
func (r *IngredientRepo) Get(ctx context.Context, id string) (*model.Ingredient, error) {
	const q = `SELECT id, name, doc, created_at, updated_at FROM ingredients WHERE id=$1`
	ing, err := scanIngredient(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %s: %w", id, errs.ErrNotFound)
	}
	return ing, err
}

// List returns the catalog ordered by name.
func (r *IngredientRepo) List(ctx context.Context) ([]*model.Ingredient, error) {
	const q = `SELECT id, name, doc, created_at, updated_at FROM ingredients ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Ingredient{}
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// Update replaces an entry's name and document.
func (r *IngredientRepo) Update(ctx context.Context, ing *model.Ingredient) error {
	doc, err := encodeIngredient(ing)
	if err != nil {
		return err
	}
	const q = `UPDATE ingredients SET name=$2, doc=$3, updated_at=$4 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, ing.ID, ing.Name, doc, ing.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("ingredient %q: %w", ing.Name, errs.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ingredient %s: %w", ing.ID, errs.ErrNotFound)
	}
	return nil
}

// Delete removes an entry.
func (r *IngredientRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM ingredients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ingredient %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
