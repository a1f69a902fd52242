package activity

import (
	"context"
	"database/sql"
	"time"
)

// Log is one audit-trail row, written by the worker from queue events.
type Log struct {
	ID        int64     `json:"id"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists activity logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one log row.
func (r *Repository) Insert(ctx context.Context, l Log) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (actor_id, action, detail) VALUES ($1, $2, $3)
	`, l.ActorID, l.Action, l.Detail)
	return err
}

// List returns recent logs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, detail, created_at
		FROM activity_logs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.Detail, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
