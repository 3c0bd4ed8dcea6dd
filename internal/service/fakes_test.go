package service

import (
	"context"
	"sync"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/moderation"
	"github.com/and161185/slushbook/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) SetRole(_ context.Context, id string, role model.Role) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return errs.ErrNotFound
}

// fakeRecipes keeps recipes in memory and honors the conditional update contracts.
type fakeRecipes struct {
	mu      sync.Mutex
	byID    map[string]*model.Recipe
	devices map[string]string

	lastFilter repository.RecipeFilter
	createErr  error
	listErr    error
}

var _ repository.RecipeRepository = (*fakeRecipes)(nil)

func newFakeRecipes(rs ...*model.Recipe) *fakeRecipes {
	f := &fakeRecipes{byID: map[string]*model.Recipe{}, devices: map[string]string{}}
	for _, r := range rs {
		f.byID[r.ID] = r.Clone()
	}
	return f
}

func (f *fakeRecipes) Create(_ context.Context, r *model.Recipe, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byID[r.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.Ver = 1
	f.byID[r.ID] = r.Clone()
	f.devices[r.ID] = deviceID
	return nil
}
func (f *fakeRecipes) Get(_ context.Context, id string) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.Clone(), nil
}
func (f *fakeRecipes) List(_ context.Context, rf repository.RecipeFilter) ([]*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = rf
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Recipe, 0, len(f.byID))
	for _, r := range f.byID {
		if rf.AuthorID != "" && r.AuthorID != rf.AuthorID {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}
func (f *fakeRecipes) Update(_ context.Context, r *model.Recipe, baseVer int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[r.ID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	if cur.Ver != baseVer {
		return 0, errs.ErrVersionConflict
	}
	next := r.Clone()
	next.Ver = baseVer + 1
	f.byID[r.ID] = next
	return next.Ver, nil
}
func (f *fakeRecipes) ApplyTransition(_ context.Context, t moderation.Transition) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[t.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	next := cur.Clone()
	if err := t.Apply(next); err != nil {
		return nil, err
	}
	f.byID[t.ID] = next
	return next.Clone(), nil
}
func (f *fakeRecipes) UpsertTranslation(_ context.Context, id string, lang model.Lang, tr model.Translation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if _, ok := cur.Translations[lang]; ok {
		return false, nil
	}
	cur.Translations[lang] = tr
	return true, nil
}
func (f *fakeRecipes) Upsert(_ context.Context, r *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := r.Clone()
	next.Ver = 1
	if cur, ok := f.byID[r.ID]; ok {
		next.Ver = cur.Ver + 1
	}
	f.byID[r.ID] = next
	return nil
}
func (f *fakeRecipes) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeIngredients struct {
	byID    map[string]*model.Ingredient
	listErr error
}

var _ repository.IngredientRepository = (*fakeIngredients)(nil)

func (f *fakeIngredients) Create(_ context.Context, ing *model.Ingredient) error {
	if f.byID == nil {
		f.byID = map[string]*model.Ingredient{}
	}
	for _, cur := range f.byID {
		if cur.Name == ing.Name {
			return errs.ErrAlreadyExists
		}
	}
	c := *ing
	f.byID[ing.ID] = &c
	return nil
}
func (f *fakeIngredients) Get(_ context.Context, id string) (*model.Ingredient, error) {
	ing, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *ing
	return &c, nil
}
func (f *fakeIngredients) List(context.Context) ([]*model.Ingredient, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Ingredient, 0, len(f.byID))
	for _, ing := range f.byID {
		c := *ing
		out = append(out, &c)
	}
	return out, nil
}
func (f *fakeIngredients) Update(_ context.Context, ing *model.Ingredient) error {
	if _, ok := f.byID[ing.ID]; !ok {
		return errs.ErrNotFound
	}
	c := *ing
	f.byID[ing.ID] = &c
	return nil
}
func (f *fakeIngredients) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string][]model.Lang
	err  error
}

var _ TranslationQueue = (*fakeQueue)(nil)

func (q *fakeQueue) Enqueue(_ context.Context, recipeID string, langs []model.Lang) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if q.jobs == nil {
		q.jobs = map[string][]model.Lang{}
	}
	q.jobs[recipeID] = append([]model.Lang(nil), langs...)
	return nil
}
