// Package policy decides who may view, create, edit and moderate recipes and
// enforces the guest create quota.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/limiter"
	"github.com/and161185/slushbook/internal/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// GuestCreateLimit is the number of recipes a guest may create per device or session.
const GuestCreateLimit = 2

// Object is a protected resource kind.
type Object string

const (
	ObjRecipe     Object = "recipe"
	ObjIngredient Object = "ingredient"
	ObjUser       Object = "user"
	ObjTransfer   Object = "transfer"
)

// Action is a permission on an Object.
type Action string

const (
	ActCreate        Action = "create"
	ActEditOwn       Action = "edit_own"
	ActEditCommunity Action = "edit_community"
	ActEditAny       Action = "edit_any"
	ActModerate      Action = "moderate"
	ActDelete        Action = "delete"
	ActViewNonDraft  Action = "view_non_draft"
	ActViewAll       Action = "view_all"
	ActPatch         Action = "patch"
	ActWrite         Action = "write"
	ActSetRole       Action = "set_role"
	ActRun           Action = "run"
)

// Guard names who may trigger a moderation event.
type Guard int

const (
	GuardAuthor Guard = iota + 1
	GuardModerator
	GuardAuthorOrModerator
)

func (g Guard) String() string {
	switch g {
	case GuardAuthor:
		return "author"
	case GuardModerator:
		return "moderator"
	case GuardAuthorOrModerator:
		return "author_or_moderator"
	}
	return "unknown"
}

// Policy answers permission questions for a caller. It is read-only after New.
type Policy struct {
	enf   *casbin.SyncedEnforcer
	quota limiter.Quota
}

// New builds the role matrix from the embedded casbin model and policy.
// quota backs the guest create limit.
func New(quota limiter.Quota) (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}
	enf, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enf, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Policy{enf: enf, quota: quota}, nil
}

func loadPolicy(enf *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enf.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enf.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("bad policy line %q", line)
		}
	}
	return nil
}

// Can reports whether role holds act on obj. Unknown roles hold nothing.
func (p *Policy) Can(role model.Role, obj Object, act Action) bool {
	if !role.Valid() {
		return false
	}
	ok, err := p.enf.Enforce(string(role), string(obj), string(act))
	return err == nil && ok
}

// Require fails with NotAuthenticated for anonymous callers and Forbidden when the
// caller's role lacks act on obj.
func (p *Policy) Require(c model.Caller, obj Object, act Action) error {
	if !c.Authenticated() {
		return errs.ErrNotAuthenticated
	}
	if !p.Can(c.Role, obj, act) {
		return fmt.Errorf("%w: %s may not %s %s", errs.ErrForbidden, c.Role, act, obj)
	}
	return nil
}

// CanEdit applies the edit policy: admin edits anything, editor anything not curated
// by the system, pro only their own recipes, guests nothing.
func (p *Policy) CanEdit(c model.Caller, r *model.Recipe) error {
	if !c.Authenticated() {
		return errs.ErrNotAuthenticated
	}
	switch {
	case p.Can(c.Role, ObjRecipe, ActEditAny):
		return nil
	case p.Can(c.Role, ObjRecipe, ActEditCommunity) && !r.IsSystem():
		return nil
	case p.Can(c.Role, ObjRecipe, ActEditOwn) && c.IsAuthorOf(r):
		return nil
	}
	return fmt.Errorf("%w: %s may not edit recipe %s", errs.ErrForbidden, c.Role, r.ID)
}

// CanModerate requires editor or higher.
func (p *Policy) CanModerate(c model.Caller) error {
	return p.Require(c, ObjRecipe, ActModerate)
}

// CanDelete requires admin.
func (p *Policy) CanDelete(c model.Caller) error {
	return p.Require(c, ObjRecipe, ActDelete)
}

// CanWriteIngredients requires editor or higher.
func (p *Policy) CanWriteIngredients(c model.Caller) error {
	return p.Require(c, ObjIngredient, ActWrite)
}

// Check evaluates a moderation guard for c on r. A failed guard matches both
// ErrInvalidTransition and ErrForbidden.
func (p *Policy) Check(g Guard, c model.Caller, r *model.Recipe) error {
	if !c.Authenticated() {
		return errs.ErrNotAuthenticated
	}
	author := c.IsAuthorOf(r)
	moderator := p.Can(c.Role, ObjRecipe, ActModerate)
	var ok bool
	switch g {
	case GuardAuthor:
		ok = author
	case GuardModerator:
		ok = moderator
	case GuardAuthorOrModerator:
		ok = author || moderator
	}
	if !ok {
		return fmt.Errorf("%w: %w: %s guard not satisfied for recipe %s", errs.ErrInvalidTransition, errs.ErrForbidden, g, r.ID)
	}
	return nil
}

// QuotaKey is the durable identifier a guest's creations are counted under.
// An authenticated user id always wins over the client-supplied device id.
func QuotaKey(c model.Caller) string {
	if c.UserID != "" {
		return "user:" + c.UserID
	}
	if c.DeviceID != "" {
		return "device:" + c.DeviceID
	}
	return ""
}

// ReserveCreate checks create permission and, for guests, takes one quota slot.
// The returned release func gives the slot back and must be called when the
// creation does not complete; it is a no-op for unbounded roles.
func (p *Policy) ReserveCreate(ctx context.Context, c model.Caller) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if err := p.Require(c, ObjRecipe, ActCreate); err != nil {
		return noop, err
	}
	if c.Role != model.RoleGuest {
		return noop, nil
	}
	key := QuotaKey(c)
	if key == "" {
		return noop, errs.ErrNotAuthenticated
	}
	hash := limiter.HashKey(key)
	ok, used, err := p.quota.Reserve(ctx, hash, GuestCreateLimit)
	if err != nil {
		return noop, fmt.Errorf("reserve guest quota: %w", err)
	}
	if !ok {
		return noop, fmt.Errorf("%w: %d of %d recipes used", errs.ErrQuotaExceeded, used, GuestCreateLimit)
	}
	return func(ctx context.Context) error { return p.quota.Release(ctx, hash) }, nil
}

// Remaining reports how many recipes c may still create; -1 means unbounded.
func (p *Policy) Remaining(ctx context.Context, c model.Caller) (int, error) {
	if !c.Authenticated() || !p.Can(c.Role, ObjRecipe, ActCreate) {
		return 0, nil
	}
	if c.Role != model.RoleGuest {
		return -1, nil
	}
	used, err := p.quota.Used(ctx, limiter.HashKey(QuotaKey(c)))
	if err != nil {
		return 0, err
	}
	if used >= GuestCreateLimit {
		return 0, nil
	}
	return GuestCreateLimit - used, nil
}
