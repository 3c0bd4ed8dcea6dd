package limiter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed Quota over the guest_quota table.
type PG struct {
	pool pgxQuerier
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed quota over any pgx pool or connection.
func NewPG(q pgxQuerier) *PG {
	return &PG{pool: q}
}

// Reserve increments the counter only while it is below limit. The conditional upsert
// makes concurrent reservations for one key serialize on the row lock.
func (l *PG) Reserve(ctx context.Context, key []byte, limit int) (bool, int, error) {
	if limit <= 0 {
		return false, 0, nil
	}
	const q = `
INSERT INTO guest_quota (key_hash, created_count, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (key_hash) DO UPDATE
SET created_count = guest_quota.created_count + 1, updated_at = now()
WHERE guest_quota.created_count < $2
RETURNING created_count`
	var n int
	err := l.pool.QueryRow(ctx, q, key, limit).Scan(&n)
	switch {
	case err == nil:
		return true, n, nil
	case errors.Is(err, pgx.ErrNoRows):
		used, uerr := l.Used(ctx, key)
		if uerr != nil {
			return false, 0, uerr
		}
		return false, used, nil
	default:
		return false, 0, err
	}
}

// Release decrements the counter, never below zero.
func (l *PG) Release(ctx context.Context, key []byte) error {
	const q = `UPDATE guest_quota SET created_count = GREATEST(created_count - 1, 0), updated_at = now() WHERE key_hash = $1`
	_, err := l.pool.Exec(ctx, q, key)
	return err
}

// Used reads the current counter; a missing row counts as zero.
func (l *PG) Used(ctx context.Context, key []byte) (int, error) {
	const q = `SELECT created_count FROM guest_quota WHERE key_hash = $1`
	var n int
	err := l.pool.QueryRow(ctx, q, key).Scan(&n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, nil
	default:
		return 0, err
	}
}
