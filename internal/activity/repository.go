package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository menyimpan dan membaca activity_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository activity log berbasis pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a single entry, snapshotting the actor's current username.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	const query = `INSERT INTO activity_logs (user_id, actor_username, action, table_name, record_id, old_data, new_data, ip_address, user_agent, created_at)
VALUES ($1, COALESCE((SELECT username FROM users WHERE id = $1), ''), $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		nullableID(entry.UserID),
		string(entry.Action),
		entry.TableName,
		entry.RecordID,
		nullableJSON(entry.OldData),
		nullableJSON(entry.NewData),
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	return err
}

// List returns one page of entries, newest first, and the total matching count.
func (r *Repository) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Action != "" {
		add("a.action = $%d", string(filter.Action))
	}
	if filter.UserID != 0 {
		add("a.user_id = $%d", filter.UserID)
	}
	if filter.TableName != "" {
		add("a.table_name = $%d", filter.TableName)
	}
	if !filter.From.IsZero() {
		add("a.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("a.created_at < $%d", filter.To)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT a.id, a.user_id, a.actor_username, a.action, a.table_name, a.record_id,
       a.old_data, a.new_data, a.ip_address, a.user_agent, a.created_at, COUNT(*) OVER()
FROM activity_logs a`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&sb, " ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		records []Record
		total   int
	)
	for rows.Next() {
		var (
			rec    Record
			userID pgtype.Int8
			action string
		)
		if err := rows.Scan(&rec.ID, &userID, &rec.Username, &action, &rec.TableName, &rec.RecordID,
			&rec.OldData, &rec.NewData, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		if userID.Valid {
			id := userID.Int64
			rec.UserID = &id
		}
		rec.Action = Action(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func nullableID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}

var _ Writer = (*Repository)(nil)
