package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/moderation"
	"github.com/and161185/slushbook/internal/repository"
)

// recipeDoc is the JSONB part of a recipe row.
type recipeDoc struct {
	DefaultLanguage model.Lang                       `json:"default_language"`
	Translations    map[model.Lang]model.Translation `json:"translations"`
	Ingredients     []model.IngredientLine           `json:"ingredients"`
	ImageURL        string                           `json:"image_url"`
}

const recipeCols = `id, author_id, approval_status, is_published, is_free, created_at, updated_at, approved_at, approved_by, rejection_reason, ver, doc`

var recipeColList = []string{
	"id", "author_id", "approval_status", "is_published", "is_free", "created_at", "updated_at",
	"approved_at", "approved_by", "rejection_reason", "ver", "doc",
}

// RecipeRepo implements RecipeRepository using PostgreSQL.
type RecipeRepo struct{ db *DB }

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// NewRecipeRepo constructs a recipe repository.
func NewRecipeRepo(db *DB) *RecipeRepo { return &RecipeRepo{db: db} }

func encodeDoc(r *model.Recipe) ([]byte, error) {
	return json.Marshal(recipeDoc{
		DefaultLanguage: r.DefaultLanguage,
		Translations:    r.Translations,
		Ingredients:     r.Ingredients,
		ImageURL:        r.ImageURL,
	})
}

func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var (
		r          model.Recipe
		status     string
		approvedBy *string
		reason     *string
		raw        []byte
	)
	if err := row.Scan(&r.ID, &r.AuthorID, &status, &r.IsPublished, &r.IsFree, &r.CreatedAt, &r.UpdatedAt,
		&r.ApprovedAt, &approvedBy, &reason, &r.Ver, &raw); err != nil {
		return nil, err
	}
	r.ApprovalStatus = model.ApprovalStatus(status)
	var doc recipeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("recipe %s: decode doc: %w", r.ID, err)
	}
	r.DefaultLanguage = doc.DefaultLanguage
	r.Translations = doc.Translations
	if r.Translations == nil {
		r.Translations = map[model.Lang]model.Translation{}
	}
	r.Ingredients = doc.Ingredients
	r.ImageURL = doc.ImageURL
	r.ApprovedBy = deref(approvedBy)
	r.RejectionReason = deref(reason)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	if r.ApprovedAt != nil {
		at := r.ApprovedAt.UTC()
		r.ApprovedAt = &at
	}
	return &r, nil
}

// Create inserts a recipe row with ver 1.
func (r *RecipeRepo) Create(ctx context.Context, rec *model.Recipe, deviceID string) error {
	doc, err := encodeDoc(rec)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO recipes (id, author_id, approval_status, is_published, is_free, device_id, created_at, updated_at,
  approved_at, approved_by, rejection_reason, ver, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12)`
	_, err = r.db.Pool.Exec(ctx, q, rec.ID, rec.AuthorID, string(rec.ApprovalStatus), rec.IsPublished, rec.IsFree,
		nullString(deviceID), rec.CreatedAt, rec.UpdatedAt, rec.ApprovedAt, nullString(rec.ApprovedBy),
		nullString(rec.RejectionReason), doc)
	if isUniqueViolation(err) {
		return fmt.Errorf("recipe %s: %w", rec.ID, errs.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	rec.Ver = 1
	return nil
}

// Get loads a recipe by id.
func (r *RecipeRepo) Get(ctx context.Context, id string) (*model.Recipe, error) {
	q := `SELECT ` + recipeCols + ` FROM recipes WHERE id=$1`
	rec, err := scanRecipe(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, errs.ErrNotFound)
	}
	return rec, err
}

func listQuery(f repository.RecipeFilter) (string, []any, error) {
	public := sq.And{sq.Eq{"is_published": true}, sq.Eq{"approval_status": string(model.StatusApproved)}}

	b := psql.Select(recipeColList...).From("recipes")
	switch f.Scope {
	case repository.ScopeNonDraftOrOwn:
		b = b.Where(sq.Or{sq.NotEq{"approval_status": string(model.StatusDraft)}, sq.Eq{"author_id": f.UserID}})
	case repository.ScopePublicOrOwn:
		b = b.Where(sq.Or{public, sq.Eq{"author_id": f.UserID}})
	case repository.ScopePublic:
		b = b.Where(public)
	}
	if f.AuthorID != "" {
		b = b.Where(sq.Eq{"author_id": f.AuthorID})
	}
	switch f.Order {
	case repository.OrderGuestWindow:
		b = b.OrderBy("is_free DESC", "created_at ASC", "id ASC")
	default:
		b = b.OrderBy("is_free DESC", "created_at DESC", "id ASC")
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	return b.ToSql()
}

// List returns candidates for f.
func (r *RecipeRepo) List(ctx context.Context, f repository.RecipeFilter) ([]*model.Recipe, error) {
	q, args, err := listQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build recipe query: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update writes content and admin flags with optimistic concurrency on ver.
func (r *RecipeRepo) Update(ctx context.Context, rec *model.Recipe, baseVer int64) (newVer int64, err error) {
	doc, err := encodeDoc(rec)
	if err != nil {
		return 0, err
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT ver FROM recipes WHERE id=$1 FOR UPDATE`
	const upd = `UPDATE recipes SET doc=$2, is_free=$3, updated_at=$4, ver=$5 WHERE id=$1`

	var curVer int64
	if err = tx.QueryRow(ctx, sel, rec.ID).Scan(&curVer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("recipe %s: %w", rec.ID, errs.ErrNotFound)
		}
		return 0, err
	}
	if curVer != baseVer {
		return 0, fmt.Errorf("recipe %s at ver %d, got %d: %w", rec.ID, curVer, baseVer, errs.ErrVersionConflict)
	}
	newVer = curVer + 1
	if _, err = tx.Exec(ctx, upd, rec.ID, doc, rec.IsFree, rec.UpdatedAt, newVer); err != nil {
		return 0, err
	}
	return newVer, nil
}

// ApplyTransition is a single conditional UPDATE, so concurrent transitions from the
// same state funnel to exactly one success.
func (r *RecipeRepo) ApplyTransition(ctx context.Context, t moderation.Transition) (*model.Recipe, error) {
	q := `
UPDATE recipes
SET approval_status=$3, is_published=COALESCE($4, is_published), approved_at=$5, approved_by=$6,
  rejection_reason=$7, updated_at=$8, ver=ver+1
WHERE id=$1 AND approval_status=$2
RETURNING ` + recipeCols
	rec, err := scanRecipe(r.db.Pool.QueryRow(ctx, q, t.ID, string(t.From), string(t.To), t.IsPublished,
		t.ApprovedAt, nullString(t.ApprovedBy), nullString(t.RejectionReason), t.Now))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM recipes WHERE id=$1)`, t.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("recipe %s: %w", t.ID, errs.ErrNotFound)
	}
	return nil, fmt.Errorf("%w: %s on recipe %s no longer in %s", errs.ErrInvalidTransition, t.Event, t.ID, t.From)
}

// UpsertTranslation sets doc.translations[lang] unless another writer already did.
func (r *RecipeRepo) UpsertTranslation(ctx context.Context, id string, lang model.Lang, tr model.Translation) (bool, error) {
	raw, err := json.Marshal(tr)
	if err != nil {
		return false, err
	}
	const q = `
UPDATE recipes
SET doc = jsonb_set(doc, ARRAY['translations', $2::text], $3::jsonb, true), updated_at=$4, ver=ver+1
WHERE id=$1 AND NOT jsonb_exists(COALESCE(doc->'translations', '{}'::jsonb), $2::text)`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(lang), raw, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert inserts or replaces a recipe by id.
func (r *RecipeRepo) Upsert(ctx context.Context, rec *model.Recipe) error {
	doc, err := encodeDoc(rec)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO recipes (id, author_id, approval_status, is_published, is_free, created_at, updated_at,
  approved_at, approved_by, rejection_reason, ver, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11)
ON CONFLICT (id) DO UPDATE SET
  author_id=EXCLUDED.author_id, approval_status=EXCLUDED.approval_status, is_published=EXCLUDED.is_published,
  is_free=EXCLUDED.is_free, created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at,
  approved_at=EXCLUDED.approved_at, approved_by=EXCLUDED.approved_by, rejection_reason=EXCLUDED.rejection_reason,
  doc=EXCLUDED.doc, ver=recipes.ver+1`
	_, err = r.db.Pool.Exec(ctx, q, rec.ID, rec.AuthorID, string(rec.ApprovalStatus), rec.IsPublished, rec.IsFree,
		rec.CreatedAt, rec.UpdatedAt, rec.ApprovedAt, nullString(rec.ApprovedBy), nullString(rec.RejectionReason), doc)
	return err
}

// Delete removes a recipe row.
func (r *RecipeRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM recipes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recipe %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
