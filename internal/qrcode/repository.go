package qrcode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Repository persists QR codes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the allocator.
type TxRepository interface {
	LockPrefix(ctx context.Context, prefix string) error
	LatestCode(ctx context.Context, prefix string) (string, error)
	InsertBatch(ctx context.Context, codes []string, createdBy int64) ([]Code, error)
}

type txRepo struct {
	tx pgx.Tx
}

const codeColumns = `id, code, is_used, created_by, created_at, used_by, used_at`

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithReadCommittedTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// LockPrefix serialises allocators of the same prefix until the transaction ends.
func (t *txRepo) LockPrefix(ctx context.Context, prefix string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "qr_codes:"+prefix)
	return err
}

// LatestCode returns the greatest code of the prefix, empty when none exist.
func (t *txRepo) LatestCode(ctx context.Context, prefix string) (string, error) {
	var code string
	err := t.tx.QueryRow(ctx,
		`SELECT code FROM qr_codes WHERE code ~ ('^' || $1 || '[0-9]{6}$') ORDER BY code DESC LIMIT 1`,
		prefix,
	).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return code, err
}

// InsertBatch inserts every code in one statement and returns them in code order.
func (t *txRepo) InsertBatch(ctx context.Context, codes []string, createdBy int64) ([]Code, error) {
	rows, err := t.tx.Query(ctx,
		`INSERT INTO qr_codes (code, created_by)
SELECT c, $2 FROM unnest($1::text[]) AS c
RETURNING `+codeColumns,
		codes, pgtype.Int8{Int64: createdBy, Valid: createdBy != 0},
	)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanCode)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, shared.Conflictf("QR code range %s..%s overlaps existing codes", codes[0], codes[len(codes)-1])
		}
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// FindByCode fetches a code by identifier.
func (r *Repository) FindByCode(ctx context.Context, code string) (Code, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+codeColumns+` FROM qr_codes WHERE code = $1`, code)
	if err != nil {
		return Code{}, err
	}
	found, err := pgx.CollectExactlyOneRow(rows, scanCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Code{}, shared.NotFoundf("QR code %s not found", code)
	}
	return found, err
}

// Range lists codes between first and last inclusive, in order.
func (r *Repository) Range(ctx context.Context, first, last string, limit int) ([]Code, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+codeColumns+` FROM qr_codes WHERE code >= $1 AND code <= $2 ORDER BY code LIMIT $3`,
		first, last, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCode)
}

// CountAll counts every generated code.
func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM qr_codes`).Scan(&n)
	return n, err
}

// CountUsed counts consumed codes.
func (r *Repository) CountUsed(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM qr_codes WHERE is_used`).Scan(&n)
	return n, err
}

// List returns one page of codes, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Code, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Used != nil {
		args = append(args, *filter.Used)
		where = append(where, fmt.Sprintf("is_used = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToUpper(s)+"%")
		where = append(where, fmt.Sprintf("code LIKE $%d", len(args)))
	}
	query := `SELECT ` + codeColumns + `, COUNT(*) OVER() FROM qr_codes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY code DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []Code
		total int
	)
	for rows.Next() {
		c, err := scanCodeWith(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Orphaned lists consumed codes that no product references.
func (r *Repository) Orphaned(ctx context.Context, limit int) ([]Code, error) {
	rows, err := r.pool.Query(ctx, `SELECT q.id, q.code, q.is_used, q.created_by, q.created_at, q.used_by, q.used_at
FROM qr_codes q
LEFT JOIN products p ON p.qr_code_id = q.id
WHERE q.is_used AND p.id IS NULL
ORDER BY q.code
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCode)
}

func scanCode(row pgx.CollectableRow) (Code, error) {
	return scanCodeWith(row)
}

func scanCodeWith(row pgx.Row, extra ...any) (Code, error) {
	var (
		c         Code
		createdBy pgtype.Int8
		usedBy    pgtype.Int8
		usedAt    pgtype.Timestamptz
	)
	dest := append([]any{&c.ID, &c.Code, &c.IsUsed, &createdBy, &c.CreatedAt, &usedBy, &usedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Code{}, err
	}
	if createdBy.Valid {
		v := createdBy.Int64
		c.CreatedBy = &v
	}
	if usedBy.Valid {
		v := usedBy.Int64
		c.UsedBy = &v
	}
	if usedAt.Valid {
		v := usedAt.Time
		c.UsedAt = &v
	}
	return c, nil
}
