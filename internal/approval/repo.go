package approval

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists leave and overtime requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const leaveCols = `id, employee_id, type, start_date, end_date, reason, status, approver_id, created_at`
const overtimeCols = `id, employee_id, date, start_time, end_time, reason, status, approver_id, created_at`

// CreateLeave inserts a pending leave request.
func (r *Repository) CreateLeave(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leave_requests (employee_id, type, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, created_at
	`, req.EmployeeID, req.Type, req.StartDate, req.EndDate, req.Reason)
	if err := row.Scan(&req.ID, &req.Status, &req.CreatedAt); err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

// CreateOvertime inserts a pending overtime request.
func (r *Repository) CreateOvertime(ctx context.Context, req OvertimeRequest) (OvertimeRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO overtime_requests (employee_id, date, start_time, end_time, reason, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, created_at
	`, req.EmployeeID, req.Date, req.StartTime, req.EndTime, req.Reason)
	if err := row.Scan(&req.ID, &req.Status, &req.CreatedAt); err != nil {
		return OvertimeRequest{}, err
	}
	return req, nil
}

// GetLeave returns a leave request by id, nil when absent.
func (r *Repository) GetLeave(ctx context.Context, id int64) (*LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leaveCols+` FROM leave_requests WHERE id = $1`, id)
	var req LeaveRequest
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Type, &req.StartDate, &req.EndDate, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetOvertime returns an overtime request by id, nil when absent.
func (r *Repository) GetOvertime(ctx context.Context, id int64) (*OvertimeRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+overtimeCols+` FROM overtime_requests WHERE id = $1`, id)
	var req OvertimeRequest
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Date, &req.StartTime, &req.EndTime, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// DecideLeave flips a pending leave request to a terminal status. The WHERE
// clause is the state machine: only a pending row matches, so a second
// decision affects zero rows no matter how requests interleave.
func (r *Repository) DecideLeave(ctx context.Context, id, approverID int64, status string) (LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE leave_requests SET status = $2, approver_id = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+leaveCols+`
	`, id, status, approverID)
	var req LeaveRequest
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Type, &req.StartDate, &req.EndDate, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LeaveRequest{}, r.classifyLeaveMiss(ctx, id)
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (r *Repository) classifyLeaveMiss(ctx context.Context, id int64) error {
	existing, err := r.GetLeave(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return ErrNotPending
}

// DecideOvertime flips a pending overtime request to a terminal status.
func (r *Repository) DecideOvertime(ctx context.Context, id, approverID int64, status string) (OvertimeRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE overtime_requests SET status = $2, approver_id = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+overtimeCols+`
	`, id, status, approverID)
	var req OvertimeRequest
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Date, &req.StartTime, &req.EndTime, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, gerr := r.GetOvertime(ctx, id)
		if gerr != nil {
			return OvertimeRequest{}, gerr
		}
		if existing == nil {
			return OvertimeRequest{}, ErrNotFound
		}
		return OvertimeRequest{}, ErrNotPending
	}
	if err != nil {
		return OvertimeRequest{}, err
	}
	return req, nil
}

// ListLeave returns leave requests, newest first; employeeID 0 means all.
func (r *Repository) ListLeave(ctx context.Context, employeeID int64) ([]LeaveRequest, error) {
	query := `SELECT ` + leaveCols + ` FROM leave_requests`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LeaveRequest
	for rows.Next() {
		var req LeaveRequest
		if err := rows.Scan(&req.ID, &req.EmployeeID, &req.Type, &req.StartDate, &req.EndDate, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// ListOvertime returns overtime requests, newest first; employeeID 0 means all.
func (r *Repository) ListOvertime(ctx context.Context, employeeID int64) ([]OvertimeRequest, error) {
	query := `SELECT ` + overtimeCols + ` FROM overtime_requests`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []OvertimeRequest
	for rows.Next() {
		var req OvertimeRequest
		if err := rows.Scan(&req.ID, &req.EmployeeID, &req.Date, &req.StartTime, &req.EndTime, &req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

var _ Store = (*Repository)(nil)
