package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
)

var userCols = []string{"id", "email", "name", "role", "country", "pwd_hash", "salt_auth", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{
		ID:       "u1",
		Email:    "ann@example.com",
		Name:     "Ann",
		Role:     model.RoleGuest,
		Country:  "DK",
		PwdHash:  []byte("h"),
		SaltAuth: []byte("s"),
	}

	mock.ExpectExec(`INSERT INTO users \(id, email, name, role, country, pwd_hash, salt_auth\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).
		WithArgs(u.ID, u.Email, u.Name, "guest", u.Country, u.PwdHash, u.SaltAuth).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Email, u.Name, "guest", u.Country, u.PwdHash, u.SaltAuth).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)
}

func TestUserRepo_GetByIDAndEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, email, name, role, country, pwd_hash, salt_auth, created_at FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("u1", "ann@example.com", "Ann", "editor", "DE", []byte("h"), []byte("s"), ts))
	u, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.RoleEditor, u.Role)
	require.Equal(t, "DE", u.Country)

	mock.ExpectQuery(`FROM users WHERE email=\$1`).
		WithArgs("ann@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("u1", "ann@example.com", "Ann", "pro", "DK", []byte("h"), []byte("s"), ts))
	u, err = r.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_SetRole(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET role=\$2 WHERE id=\$1`).
		WithArgs("u1", "pro").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetRole(ctx, "u1", model.RolePro))

	mock.ExpectExec(`UPDATE users SET role=\$2 WHERE id=\$1`).
		WithArgs("u9", "pro").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SetRole(ctx, "u9", model.RolePro), errs.ErrNotFound)
}
