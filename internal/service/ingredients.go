package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
	"github.com/and161185/slushbook/internal/repository"
)

// IngredientService is the read-mostly ingredient catalog. Writes need editor or higher.
type IngredientService interface {
	List(ctx context.Context) ([]*model.Ingredient, error)
	Get(ctx context.Context, id string) (*model.Ingredient, error)
	Create(ctx context.Context, c model.Caller, ing *model.Ingredient) (*model.Ingredient, error)
	Update(ctx context.Context, c model.Caller, ing *model.Ingredient) (*model.Ingredient, error)
	Delete(ctx context.Context, c model.Caller, id string) error
	// CanSeeAllLinks reports whether c gets every affiliate link rather than its own country's.
	CanSeeAllLinks(c model.Caller) bool
}

type IngredientServiceImpl struct {
	repo   repository.IngredientRepository
	policy *policy.Policy
	now    func() time.Time
}

// NewIngredientService constructs IngredientService.
func NewIngredientService(repo repository.IngredientRepository, pol *policy.Policy) *IngredientServiceImpl {
	return &IngredientServiceImpl{repo: repo, policy: pol, now: time.Now}
}

func (s *IngredientServiceImpl) List(ctx context.Context) ([]*model.Ingredient, error) {
	return s.repo.List(ctx)
}

func (s *IngredientServiceImpl) Get(ctx context.Context, id string) (*model.Ingredient, error) {
	return s.repo.Get(ctx, id)
}

// Create assigns an id and timestamps and stores a validated entry.
func (s *IngredientServiceImpl) Create(ctx context.Context, c model.Caller, ing *model.Ingredient) (*model.Ingredient, error) {
	if err := s.policy.CanWriteIngredients(c); err != nil {
		return nil, err
	}
	out := normalizeIngredient(*ing)
	if out.ID == "" {
		uid, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		out.ID = uid.String()
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	if err := s.repo.Create(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an existing entry, keeping its creation time.
func (s *IngredientServiceImpl) Update(ctx context.Context, c model.Caller, ing *model.Ingredient) (*model.Ingredient, error) {
	if err := s.policy.CanWriteIngredients(c); err != nil {
		return nil, err
	}
	cur, err := s.repo.Get(ctx, ing.ID)
	if err != nil {
		return nil, err
	}
	out := normalizeIngredient(*ing)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.CreatedAt = cur.CreatedAt
	out.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *IngredientServiceImpl) Delete(ctx context.Context, c model.Caller, id string) error {
	if err := s.policy.CanWriteIngredients(c); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *IngredientServiceImpl) CanSeeAllLinks(c model.Caller) bool {
	return c.Authenticated() && s.policy.Can(c.Role, policy.ObjIngredient, policy.ActWrite)
}

// normalizeIngredient trims names and upper-cases link countries.
func normalizeIngredient(in model.Ingredient) model.Ingredient {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Category = strings.TrimSpace(in.Category)
	if len(in.Links) > 0 {
		links := make(map[string]string, len(in.Links))
		for c, u := range in.Links {
			links[strings.ToUpper(strings.TrimSpace(c))] = strings.TrimSpace(u)
		}
		in.Links = links
	}
	return in
}
