package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, full_name, role, is_active, created_at, updated_at, password_hash`

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, err
	}
	users := make([]User, len(records))
	for i, rec := range records {
		users[i] = rec.User
	}
	return users, nil
}

// get fetches a user row including its password hash.
func (r *Repository) get(ctx context.Context, id int64) (record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return record{}, err
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return record{}, shared.NotFoundf("user %d not found", id)
	}
	return rec, err
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	rec, err := r.get(ctx, id)
	return rec.User, err
}

// PasswordHash returns the stored hash for id.
func (r *Repository) PasswordHash(ctx context.Context, id int64) (string, error) {
	rec, err := r.get(ctx, id)
	return rec.PasswordHash, err
}

// RoleOf resolves the role and active flag used for authorization.
func (r *Repository) RoleOf(ctx context.Context, id int64) (string, bool, error) {
	var (
		role   string
		active bool
	)
	err := r.pool.QueryRow(ctx, `SELECT role, is_active FROM users WHERE id = $1`, id).Scan(&role, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, shared.NotFoundf("user %d not found", id)
	}
	return role, active, err
}

// Create inserts a user. A taken username is a Conflict.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	rows, err := r.pool.Query(ctx, `INSERT INTO users (username, full_name, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns, u.Username, u.FullName, passwordHash, u.Role, u.IsActive)
	if err != nil {
		return User{}, mapWriteErr(err, u.Username)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		return User{}, mapWriteErr(err, u.Username)
	}
	return rec.User, nil
}

// Update writes profile fields. An empty passwordHash keeps the current one.
func (r *Repository) Update(ctx context.Context, u User, passwordHash string) (User, error) {
	rows, err := r.pool.Query(ctx, `UPDATE users
SET full_name = $2, role = $3, is_active = $4,
    password_hash = COALESCE(NULLIF($5, ''), password_hash),
    updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, u.ID, u.FullName, u.Role, u.IsActive, passwordHash)
	if err != nil {
		return User{}, err
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.NotFoundf("user %d not found", u.ID)
	}
	return rec.User, err
}

// Delete removes a user. It reports false when the row was already gone.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountActiveAdmins counts accounts able to administer the system.
func (r *Repository) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active`).Scan(&n)
	return n, err
}

func scanRecord(row pgx.CollectableRow) (record, error) {
	var rec record
	err := row.Scan(&rec.ID, &rec.Username, &rec.FullName, &rec.Role, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.PasswordHash)
	return rec, err
}

func mapWriteErr(err error, username string) error {
	if db.IsUniqueViolation(err, "users_username_key") {
		return shared.Conflictf("username %q already exists", username)
	}
	return err
}
