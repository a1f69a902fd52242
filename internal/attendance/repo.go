package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordCols = `id, employee_id, date, check_in, check_out, status`

// CheckIn records arrival for (employee, date). The ON CONFLICT arm updates
// only the status, so a check_in timestamp is write-once: re-marking the same
// day never erases the original arrival time. The unique index on
// (employee_id, date) makes this safe under concurrent requests.
func (r *Repository) CheckIn(ctx context.Context, employeeID int64, date time.Time, checkIn time.Time, status string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (employee_id, date, check_in, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, date) DO UPDATE SET status = EXCLUDED.status
		RETURNING `+recordCols+`
	`, employeeID, date, checkIn, status)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.Status); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ForDay returns the record for (employee, date), nil when absent.
func (r *Repository) ForDay(ctx context.Context, employeeID int64, date time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance WHERE employee_id = $1 AND date = $2
	`, employeeID, date)
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetCheckOut stamps departure on an existing record for (employee, date).
func (r *Repository) SetCheckOut(ctx context.Context, employeeID int64, date time.Time, checkOut time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance SET check_out = $3
		WHERE employee_id = $1 AND date = $2
		RETURNING `+recordCols+`
	`, employeeID, date, checkOut)
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotCheckedIn
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns records with basic filters; employeeID 0 means all employees.
func (r *Repository) List(ctx context.Context, employeeID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordCols + ` FROM attendance`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}
	if employeeID != 0 {
		query += ` ORDER BY date DESC LIMIT $2`
	} else {
		query += ` ORDER BY date DESC LIMIT $1`
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.Status); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
