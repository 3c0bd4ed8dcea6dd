package postgres

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
)

var ingredientCols = []string{"id", "name", "doc", "created_at", "updated_at"}

func ingredientDocBytes(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(ingredientDoc{
		Category: "juice",
		Brix:     8.5,
		Keywords: map[model.Lang][]string{model.LangEN: {"lemon"}},
		Links:    map[string]string{"DK": "https://shop.dk/c"},
	})
	require.NoError(t, err)
	return raw
}

func TestIngredientRepo_CreateGetList(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewIngredientRepo(db)
	ctx := context.Background()
	ing := &model.Ingredient{ID: "i1", Name: "Citron", Category: "juice", Brix: 8.5, CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectExec(`INSERT INTO ingredients \(id, name, doc, created_at, updated_at\)`).
		WithArgs("i1", "Citron", pgxmock.AnyArg(), ts, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, ing))

	mock.ExpectExec(`INSERT INTO ingredients`).
		WithArgs("i1", "Citron", pgxmock.AnyArg(), ts, ts).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, ing), errs.ErrAlreadyExists)

	mock.ExpectQuery(`SELECT id, name, doc, created_at, updated_at FROM ingredients WHERE id=\$1`).
		WithArgs("i1").
		WillReturnRows(pgxmock.NewRows(ingredientCols).AddRow("i1", "Citron", ingredientDocBytes(t), ts, ts))
	got, err := r.Get(ctx, "i1")
	require.NoError(t, err)
	require.Equal(t, 8.5, got.Brix)
	require.Equal(t, []string{"lemon"}, got.Keywords[model.LangEN])

	mock.ExpectQuery(`FROM ingredients WHERE id=\$1`).
		WithArgs("i2").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, "i2")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM ingredients ORDER BY name ASC`).
		WillReturnRows(pgxmock.NewRows(ingredientCols).
			AddRow("i1", "Citron", ingredientDocBytes(t), ts, ts).
			AddRow("i3", "Vand", []byte(`{"category":"base","brix":0}`), ts, ts))
	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "base", all[1].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngredientRepo_UpdateDelete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewIngredientRepo(db)
	ctx := context.Background()
	ing := &model.Ingredient{ID: "i1", Name: "Citron", UpdatedAt: ts}

	mock.ExpectExec(`UPDATE ingredients SET name=\$2, doc=\$3, updated_at=\$4 WHERE id=\$1`).
		WithArgs("i1", "Citron", pgxmock.AnyArg(), ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.Update(ctx, ing), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM ingredients WHERE id=\$1`).
		WithArgs("i1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, "i1"))
}
