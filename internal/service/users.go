package service

import (
	"context"
	"fmt"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
	"github.com/and161185/slushbook/internal/repository"
)

// UserService exposes accounts to the admin surface.
type UserService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	// SetRole changes a user's role tag; admin only.
	SetRole(ctx context.Context, c model.Caller, id string, role model.Role) (*model.User, error)
	// Remaining reports the caller's create allowance; -1 is unbounded.
	Remaining(ctx context.Context, c model.Caller) (int, error)
}

type UserServiceImpl struct {
	users  repository.UserRepository
	policy *policy.Policy
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, pol *policy.Policy) *UserServiceImpl {
	return &UserServiceImpl{users: users, policy: pol}
}

func (s *UserServiceImpl) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserServiceImpl) SetRole(ctx context.Context, c model.Caller, id string, role model.Role) (*model.User, error) {
	if err := s.policy.Require(c, policy.ObjUser, policy.ActSetRole); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, errs.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	if id == c.UserID && role != c.Role {
		return nil, fmt.Errorf("%w: admins cannot change their own role", errs.ErrForbidden)
	}
	if err := s.users.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserServiceImpl) Remaining(ctx context.Context, c model.Caller) (int, error) {
	return s.policy.Remaining(ctx, c)
}
