package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/limiter"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
)

func newIngredientService(t *testing.T) (*IngredientServiceImpl, *fakeIngredients) {
	t.Helper()
	pol, err := policy.New(limiter.NewMemory())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	repo := &fakeIngredients{byID: map[string]*model.Ingredient{}}
	s := NewIngredientService(repo, pol)
	s.now = func() time.Time { return t0 }
	return s, repo
}

func TestIngredients_WriteRequiresEditor(t *testing.T) {
	t.Parallel()
	s, _ := newIngredientService(t)
	ctx := context.Background()
	ing := &model.Ingredient{Name: "Citron", Category: "fruit", Brix: 8}

	if _, err := s.Create(ctx, model.Anonymous(""), ing); !errors.Is(err, errs.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if _, err := s.Create(ctx, user("p", model.RolePro), ing); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for pro, got %v", err)
	}
	if err := s.Delete(ctx, user("p", model.RolePro), "x"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden on delete, got %v", err)
	}
	if s.CanSeeAllLinks(user("p", model.RolePro)) || !s.CanSeeAllLinks(user("e", model.RoleEditor)) {
		t.Fatalf("links visibility follows ingredient write permission")
	}
}

func TestIngredients_CRUD(t *testing.T) {
	t.Parallel()
	s, repo := newIngredientService(t)
	ctx := context.Background()
	ed := user("e", model.RoleEditor)

	got, err := s.Create(ctx, ed, &model.Ingredient{
		Name:     " Citron ",
		Category: "fruit",
		Brix:     8,
		Keywords: map[model.Lang][]string{model.LangEN: {"lemon"}},
		Links:    map[string]string{"dk": "https://shop.dk/citron"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.Name != "Citron" || !got.CreatedAt.Equal(t0) {
		t.Fatalf("bad created entry: %+v", got)
	}
	if _, ok := got.Links["DK"]; !ok {
		t.Fatalf("link country not normalized: %v", got.Links)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("not stored")
	}

	if _, err := s.Create(ctx, ed, &model.Ingredient{Name: "Citron"}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	if _, err := s.Create(ctx, ed, &model.Ingredient{Name: "Sirup", Brix: 120}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on brix, got %v", err)
	}

	s.now = func() time.Time { return t0.Add(time.Hour) }
	upd := *got
	upd.Brix = 9
	upd.CreatedAt = time.Time{}
	out, err := s.Update(ctx, ed, &upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out.Brix != 9 || !out.CreatedAt.Equal(t0) || !out.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("bad update: %+v", out)
	}
	if _, err := s.Update(ctx, ed, &model.Ingredient{ID: "missing", Name: "x"}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %d", err, len(list))
	}
	if err := s.Delete(ctx, ed, got.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, got.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}
