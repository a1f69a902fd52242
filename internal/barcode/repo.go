package barcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists barcodes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const tokenCols = `id, code, supervisor_id, department_id, created_at, expires_at, is_active`

// Issue deactivates every active barcode of the supervisor and inserts the new
// one in a single transaction. Together with the partial unique index on
// (supervisor_id) WHERE is_active, two concurrent issuances cannot leave two
// active rows: one of them either sees the other's deactivation or fails the
// index and rolls back whole.
func (r *Repository) Issue(ctx context.Context, t Token) (Token, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Token{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE barcodes SET is_active = FALSE
		WHERE supervisor_id = $1 AND is_active
	`, t.SupervisorID); err != nil {
		return Token{}, fmt.Errorf("deactivate prior barcodes: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO barcodes (code, supervisor_id, department_id, expires_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at
	`, t.Code, t.SupervisorID, t.DepartmentID, t.ExpiresAt)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return Token{}, fmt.Errorf("insert barcode: %w", err)
	}
	t.Active = true

	if err := tx.Commit(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Active returns the supervisor's active, unexpired barcode, nil when none.
func (r *Repository) Active(ctx context.Context, supervisorID int64) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tokenCols+` FROM barcodes
		WHERE supervisor_id = $1 AND is_active AND expires_at > NOW()
	`, supervisorID)
	return scanToken(row)
}

// ByCode returns a barcode by its code, nil when none.
func (r *Repository) ByCode(ctx context.Context, code string) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tokenCols+` FROM barcodes WHERE code = $1
	`, code)
	return scanToken(row)
}

func scanToken(row *sql.Row) (*Token, error) {
	var t Token
	err := row.Scan(&t.ID, &t.Code, &t.SupervisorID, &t.DepartmentID, &t.CreatedAt, &t.ExpiresAt, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ TokenStore = (*Repository)(nil)
