package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const constraintProductCode = "products_qr_code_id_key"

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes that must commit together.
type TxRepository interface {
	ConsumeCode(ctx context.Context, codeID, userID int64) (bool, error)
	Insert(ctx context.Context, p Product) (Product, error)
	InsertInProcess(ctx context.Context, category, productName string, count int, userID int64) ([]Product, error)
}

type txRepo struct {
	tx pgx.Tx
}

const productColumns = `p.id, p.qr_code_id, COALESCE(q.code, ''), p.category, p.product_name, p.color,
p.status, p.in_process, p.created_by, p.updated_by, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN qr_codes q ON q.id = p.qr_code_id`

// WithTx runs fn in a read-committed transaction so a conditional update
// re-evaluates its predicate against rows committed concurrently.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithReadCommittedTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ConsumeCode marks the code used. It reports false when another caller consumed it first.
func (t *txRepo) ConsumeCode(ctx context.Context, codeID, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE qr_codes SET is_used = TRUE, used_by = $2, used_at = NOW() WHERE id = $1 AND is_used = FALSE`,
		codeID, nullableID(userID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Insert creates a product. A second product for the same code is a Conflict.
func (t *txRepo) Insert(ctx context.Context, p Product) (Product, error) {
	rows, err := t.tx.Query(ctx, `WITH p AS (
	INSERT INTO products (qr_code_id, category, product_name, color, status, in_process, created_by, updated_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	RETURNING *
)
SELECT `+productColumns+` FROM p LEFT JOIN qr_codes q ON q.id = p.qr_code_id`,
		p.QRCodeID, p.Category, p.ProductName, p.Color, statusArg(p.Status), p.InProcess, ptrArg(p.CreatedBy))
	if err != nil {
		return Product{}, mapInsertErr(err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return Product{}, mapInsertErr(err)
	}
	return created, nil
}

// InsertInProcess creates count manufacturing rows in one statement.
func (t *txRepo) InsertInProcess(ctx context.Context, category, productName string, count int, userID int64) ([]Product, error) {
	rows, err := t.tx.Query(ctx, `WITH p AS (
	INSERT INTO products (category, product_name, in_process, created_by, updated_by)
	SELECT $1, $2, TRUE, $4, $4 FROM generate_series(1, $3)
	RETURNING *
)
SELECT `+productColumns+` FROM p LEFT JOIN qr_codes q ON q.id = p.qr_code_id ORDER BY p.id`,
		category, productName, count, nullableID(userID))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Get fetches a product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
	if err != nil {
		return Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFoundf("product %d not found", id)
	}
	return p, err
}

// FindByCodeID returns the product bound to a code.
func (r *Repository) FindByCodeID(ctx context.Context, codeID int64) (Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+productFrom+` WHERE p.qr_code_id = $1`, codeID)
	if err != nil {
		return Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFoundf("no product bound to QR code %d", codeID)
	}
	return p, err
}

// List returns one page of products, most recently updated first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("p.status = $%d", string(filter.Status))
	}
	if filter.Category != "" {
		add("p.category = $%d", filter.Category)
	}
	if filter.InProcess != nil {
		add("p.in_process = $%d", *filter.InProcess)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(p.product_name ILIKE $%[1]d OR q.code ILIKE $%[1]d)", "%"+s+"%")
	}
	query := `SELECT ` + productColumns + `, COUNT(*) OVER()` + productFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY p.updated_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []Product
		total int
	)
	for rows.Next() {
		p, err := scanProductWith(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Update persists the mutable fields of p.
func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	rows, err := r.pool.Query(ctx, `WITH p AS (
	UPDATE products
	SET category = $2, product_name = $3, color = $4, status = $5, in_process = $6, updated_by = $7, updated_at = NOW()
	WHERE id = $1
	RETURNING *
)
SELECT `+productColumns+` FROM p LEFT JOIN qr_codes q ON q.id = p.qr_code_id`,
		p.ID, p.Category, p.ProductName, p.Color, statusArg(p.Status), p.InProcess, ptrArg(p.UpdatedBy))
	if err != nil {
		return Product{}, err
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFoundf("product %d not found", p.ID)
	}
	return updated, err
}

// Delete removes a product. It reports false when the row was already gone.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BulkUpdateStatus sets status on every listed product that exists.
func (r *Repository) BulkUpdateStatus(ctx context.Context, ids []int64, status Status, userID int64) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = ANY($1)`,
		ids, string(status), nullableID(userID))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Stock aggregates products of a view by (category, product name).
func (r *Repository) Stock(ctx context.Context, view StockView) ([]StockGroup, error) {
	var cond string
	switch view {
	case ViewSold:
		cond = `status = 'TERJUAL'`
	case ViewInProcess:
		cond = `in_process`
	default:
		cond = `NOT in_process AND status IS DISTINCT FROM 'TERJUAL'`
	}
	rows, err := r.pool.Query(ctx, `SELECT category, product_name, COUNT(*), MAX(updated_at)
FROM products
WHERE `+cond+`
GROUP BY category, product_name
ORDER BY category, product_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StockGroup, error) {
		var g StockGroup
		err := row.Scan(&g.Category, &g.ProductName, &g.Count, &g.LastUpdated)
		return g, err
	})
}

func mapInsertErr(err error) error {
	if db.IsUniqueViolation(err, constraintProductCode) {
		return shared.Conflictf("QR code is already bound to a product")
	}
	return err
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	return scanProductWith(row)
}

func scanProductWith(row pgx.Row, extra ...any) (Product, error) {
	var (
		p         Product
		codeID    pgtype.Int8
		color     pgtype.Text
		status    pgtype.Text
		createdBy pgtype.Int8
		updatedBy pgtype.Int8
	)
	dest := append([]any{
		&p.ID, &codeID, &p.QRCode, &p.Category, &p.ProductName, &color,
		&status, &p.InProcess, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Product{}, err
	}
	p.QRCodeID = int8Ptr(codeID)
	p.CreatedBy = int8Ptr(createdBy)
	p.UpdatedBy = int8Ptr(updatedBy)
	if color.Valid {
		v := color.String
		p.Color = &v
	}
	if status.Valid {
		v := Status(status.String)
		p.Status = &v
	}
	return p, nil
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func nullableID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func ptrArg(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return nullableID(*id)
}

func statusArg(s *Status) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*s), Valid: true}
}
