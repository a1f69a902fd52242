package employee

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Roles an employee can hold.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleStaff      = "staff"
)

// Employee is a member of the company directory.
type Employee struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	DepartmentID *int64     `json:"department_id,omitempty"`
	SupervisorID *int64     `json:"supervisor_id,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	JoinDate     *time.Time `json:"join_date,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Department groups employees under a supervisor.
type Department struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Manager     *string `json:"manager,omitempty"`
}

// Repository persists the directory in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const employeeCols = `id, name, email, role, department_id, supervisor_id, phone, join_date, status, created_at`

func scanEmployee(row interface{ Scan(...any) error }) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.DepartmentID, &e.SupervisorID, &e.Phone, &e.JoinDate, &e.Status, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns an employee by id, nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = $1`, id)
	return scanEmployee(row)
}

// GetByEmail returns an employee by email, nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeCols+` FROM employees WHERE email = $1`, email)
	return scanEmployee(row)
}

// List returns all employees ordered by name.
func (r *Repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+employeeCols+` FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.DepartmentID, &e.SupervisorID, &e.Phone, &e.JoinDate, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Create inserts an employee and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, e Employee) (Employee, error) {
	if e.Status == "" {
		e.Status = "active"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO employees (name, email, role, department_id, supervisor_id, phone, join_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`, e.Name, e.Email, e.Role, e.DepartmentID, e.SupervisorID, e.Phone, e.JoinDate, e.Status)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Employee{}, ErrEmailTaken
		}
		return Employee{}, err
	}
	return e, nil
}

// Update overwrites mutable fields of an employee.
func (r *Repository) Update(ctx context.Context, e Employee) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET name = $2, email = $3, role = $4, department_id = $5, supervisor_id = $6, phone = $7, status = $8
		WHERE id = $1
	`, e.ID, e.Name, e.Email, e.Role, e.DepartmentID, e.SupervisorID, e.Phone, e.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Delete removes an employee row. Historical attendance and request rows keep
// the numeric id; dangling references are tolerated, not cascaded.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ListDepartments returns all departments.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, manager FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Manager); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// GetDepartment returns a department by id, nil when absent.
func (r *Repository) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, description, manager FROM departments WHERE id = $1`, id)
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Manager)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDepartment inserts a department.
func (r *Repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO departments (name, description, manager) VALUES ($1,$2,$3) RETURNING id
	`, d.Name, d.Description, d.Manager)
	if err := row.Scan(&d.ID); err != nil {
		if isUniqueViolation(err) {
			return Department{}, ErrNameTaken
		}
		return Department{}, err
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
