package reviews

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements ReviewsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new review item.
func (r *PGRepo) Create(ctx context.Context, item Item) error {
	const query = `
INSERT INTO review_items (
    id,
    org_id,
    kind,
    title,
    description,
    confidence,
    status,
    assigned_to,
    due_date,
    touch_time_seconds,
    loop_count,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		item.ID,
		item.OrgID,
		string(item.Kind),
		item.Title,
		item.Description,
		item.Confidence,
		string(item.Status),
		item.AssignedTo,
		nullTime(item.DueDate),
		nullInt64(item.TouchTimeSeconds),
		item.LoopCount,
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

// GetByID fetches a review item by ID for an org.
func (r *PGRepo) GetByID(ctx context.Context, orgID, itemID string) (Item, error) {
	const query = `
SELECT id, org_id, kind, title, description, confidence, status, assigned_to, due_date, touch_time_seconds, loop_count, created_at, updated_at
FROM review_items
WHERE org_id = $1 AND id = $2
LIMIT 1`
	return scanItem(r.DB.QueryRowContext(ctx, query, orgID, itemID))
}

// Update replaces a review item row.
func (r *PGRepo) Update(ctx context.Context, item Item) error {
	const query = `
UPDATE review_items
SET kind = $1,
    title = $2,
    description = $3,
    confidence = $4,
    status = $5,
    assigned_to = $6,
    due_date = $7,
    touch_time_seconds = $8,
    loop_count = $9,
    updated_at = $10
WHERE org_id = $11 AND id = $12`

	res, err := r.DB.ExecContext(
		ctx,
		query,
		string(item.Kind),
		item.Title,
		item.Description,
		item.Confidence,
		string(item.Status),
		item.AssignedTo,
		nullTime(item.DueDate),
		nullInt64(item.TouchTimeSeconds),
		item.LoopCount,
		item.UpdatedAt,
		item.OrgID,
		item.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrg lists review items newest-first. limit <= 0 loads the full org
// collection, which the metrics rollup relies on.
func (r *PGRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Item, error) {
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT id, org_id, kind, title, description, confidence, status, assigned_to, due_date, touch_time_seconds, loop_count, created_at, updated_at
FROM review_items
WHERE org_id = $1
ORDER BY created_at DESC, id`
	args := []any{orgID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` OFFSET $2`
		args = append(args, offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var kind, status string
	var dueDate sql.NullTime
	var touch sql.NullInt64
	err := row.Scan(
		&item.ID,
		&item.OrgID,
		&kind,
		&item.Title,
		&item.Description,
		&item.Confidence,
		&status,
		&item.AssignedTo,
		&dueDate,
		&touch,
		&item.LoopCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	item.Kind = Kind(kind)
	item.Status = Status(status)
	if dueDate.Valid {
		item.DueDate = &dueDate.Time
	}
	if touch.Valid {
		item.TouchTimeSeconds = &touch.Int64
	}
	return item, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ ReviewsRepo = (*PGRepo)(nil)
