package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Migrate applies the schema. Idempotent; runs at startup.
//
// The two partial/composite unique indexes are load-bearing: they hold the
// "one active barcode per supervisor" and "one attendance row per employee per
// day" invariants under concurrent writers, independent of application checks.
func (d *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT,
		manager     TEXT
	);

	CREATE TABLE IF NOT EXISTS employees (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL DEFAULT 'staff',
		department_id BIGINT REFERENCES departments(id),
		supervisor_id BIGINT,
		phone         TEXT,
		join_date     DATE,
		status        TEXT NOT NULL DEFAULT 'active',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id          BIGSERIAL PRIMARY KEY,
		employee_id BIGINT NOT NULL,
		date        DATE NOT NULL,
		check_in    TIMESTAMPTZ,
		check_out   TIMESTAMPTZ,
		status      TEXT NOT NULL DEFAULT 'present',
		UNIQUE (employee_id, date)
	);

	CREATE TABLE IF NOT EXISTS barcodes (
		id            BIGSERIAL PRIMARY KEY,
		code          TEXT NOT NULL UNIQUE,
		supervisor_id BIGINT NOT NULL,
		department_id BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at    TIMESTAMPTZ NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_barcodes_one_active
		ON barcodes (supervisor_id) WHERE is_active;

	CREATE TABLE IF NOT EXISTS leave_requests (
		id          BIGSERIAL PRIMARY KEY,
		employee_id BIGINT NOT NULL,
		type        TEXT NOT NULL,
		start_date  DATE NOT NULL,
		end_date    DATE NOT NULL,
		reason      TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		approver_id BIGINT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS overtime_requests (
		id          BIGSERIAL PRIMARY KEY,
		employee_id BIGINT NOT NULL,
		date        DATE NOT NULL,
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		reason      TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		approver_id BIGINT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS activity_logs (
		id         BIGSERIAL PRIMARY KEY,
		actor_id   BIGINT,
		action     TEXT NOT NULL,
		detail     TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
	CREATE INDEX IF NOT EXISTS idx_leave_employee ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_overtime_employee ON overtime_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_logs(created_at);
	`
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
