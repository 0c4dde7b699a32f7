package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

const pairConstraint = "product_templates_category_name_key"

// Repository persists product templates in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectTemplate = `SELECT id, category, product_name, is_active, colors, created_at, updated_at FROM product_templates`

// List returns templates ordered by category and name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Template, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	query := selectTemplate
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, product_name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// Get fetches a template by id.
func (r *Repository) Get(ctx context.Context, id int64) (Template, error) {
	row := r.pool.QueryRow(ctx, selectTemplate+" WHERE id = $1", id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, shared.NotFoundf("template %d not found", id)
	}
	return tpl, err
}

// FindByPair fetches the template for a (category, product name) pair.
func (r *Repository) FindByPair(ctx context.Context, category, productName string) (Template, error) {
	row := r.pool.QueryRow(ctx, selectTemplate+" WHERE category = $1 AND product_name = $2", category, productName)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, shared.NotFoundf("template %s / %s not found", category, productName)
	}
	return tpl, err
}

// ActiveNames lists active product names of a category.
func (r *Repository) ActiveNames(ctx context.Context, category string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_name FROM product_templates WHERE category = $1 AND is_active ORDER BY product_name`, category)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Create inserts a template.
func (r *Repository) Create(ctx context.Context, tpl Template) (Template, error) {
	colors, err := encodeColors(tpl.Colors)
	if err != nil {
		return Template{}, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO product_templates (category, product_name, is_active, colors)
VALUES ($1, $2, $3, $4)
RETURNING id, category, product_name, is_active, colors, created_at, updated_at`,
		tpl.Category, tpl.ProductName, tpl.IsActive, colors)
	created, err := scanTemplate(row)
	if db.IsUniqueViolation(err, pairConstraint) {
		return Template{}, shared.Conflictf("template %s / %s already exists", tpl.Category, tpl.ProductName)
	}
	return created, err
}

// Update overwrites a template.
func (r *Repository) Update(ctx context.Context, tpl Template) (Template, error) {
	colors, err := encodeColors(tpl.Colors)
	if err != nil {
		return Template{}, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE product_templates
SET category = $2, product_name = $3, is_active = $4, colors = $5, updated_at = NOW()
WHERE id = $1
RETURNING id, category, product_name, is_active, colors, created_at, updated_at`,
		tpl.ID, tpl.Category, tpl.ProductName, tpl.IsActive, colors)
	updated, err := scanTemplate(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Template{}, shared.NotFoundf("template %d not found", tpl.ID)
	case db.IsUniqueViolation(err, pairConstraint):
		return Template{}, shared.Conflictf("template %s / %s already exists", tpl.Category, tpl.ProductName)
	}
	return updated, err
}

// DeleteUnreferenced removes the template only while no product uses its pair.
// It returns false when the row was kept.
func (r *Repository) DeleteUnreferenced(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_templates t
WHERE t.id = $1
  AND NOT EXISTS (SELECT 1 FROM products p WHERE p.category = t.category AND p.product_name = t.product_name)`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountProducts counts products referencing a pair.
func (r *Repository) CountProducts(ctx context.Context, category, productName string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category = $1 AND product_name = $2`, category, productName).Scan(&n)
	return n, err
}

func scanTemplate(row pgx.Row) (Template, error) {
	var (
		tpl    Template
		colors []byte
	)
	if err := row.Scan(&tpl.ID, &tpl.Category, &tpl.ProductName, &tpl.IsActive, &colors, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return Template{}, err
	}
	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &tpl.Colors); err != nil {
			return Template{}, fmt.Errorf("templates: decode colors of %d: %w", tpl.ID, err)
		}
	}
	if tpl.Colors == nil {
		tpl.Colors = []ColorVariant{}
	}
	return tpl, nil
}

func encodeColors(colors []ColorVariant) ([]byte, error) {
	if colors == nil {
		colors = []ColorVariant{}
	}
	return json.Marshal(colors)
}

var _ RepositoryPort = (*Repository)(nil)
