package service

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/limiter"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
)

func TestUsers_SetRole(t *testing.T) {
	t.Parallel()
	pol, err := policy.New(limiter.NewMemory())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	users := &fakeUsers{byEmail: map[string]*model.User{
		"a@x.dk": {ID: "a", Email: "a@x.dk", Role: model.RoleAdmin},
		"g@x.dk": {ID: "g", Email: "g@x.dk", Role: model.RoleGuest},
	}}
	s := NewUserService(users, pol)
	ctx := context.Background()
	admin := user("a", model.RoleAdmin)

	if _, err := s.SetRole(ctx, user("e", model.RoleEditor), "g", model.RolePro); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for editor, got %v", err)
	}
	if _, err := s.SetRole(ctx, admin, "g", model.Role("owner")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on unknown role, got %v", err)
	}
	if _, err := s.SetRole(ctx, admin, "a", model.RoleGuest); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden on self demotion, got %v", err)
	}
	if _, err := s.SetRole(ctx, admin, "nobody", model.RolePro); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	u, err := s.SetRole(ctx, admin, "g", model.RolePro)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if u.Role != model.RolePro {
		t.Fatalf("role not changed: %s", u.Role)
	}

	n, err := s.Remaining(ctx, model.CallerFor(u, ""))
	if err != nil || n != -1 {
		t.Fatalf("pro create allowance want -1, got %d %v", n, err)
	}
	n, err = s.Remaining(ctx, model.Caller{UserID: "g2", Role: model.RoleGuest, DeviceID: "d"})
	if err != nil || n != policy.GuestCreateLimit {
		t.Fatalf("guest allowance want %d, got %d %v", policy.GuestCreateLimit, n, err)
	}
}
