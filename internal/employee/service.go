package employee

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no employee or department matched.
	ErrNotFound = errors.New("employee not found")
	// ErrEmailTaken means the email is already registered.
	ErrEmailTaken = errors.New("email already in use")
	// ErrNameTaken means a department with the same name exists.
	ErrNameTaken = errors.New("department name already in use")
	// ErrInvalidRole means the role is not admin, supervisor or staff.
	ErrInvalidRole = errors.New("invalid role")
	// ErrBadSupervisor means the supervisor reference does not point to a supervisor.
	ErrBadSupervisor = errors.New("supervisor reference must point to a supervisor")
)

// Directory is the read surface other services need from the employee store.
type Directory interface {
	Get(ctx context.Context, id int64) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	GetDepartment(ctx context.Context, id int64) (*Department, error)
}

// Service wraps the repository with directory invariants.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Directory exposes the repository as the read-only directory interface.
func (s *Service) Directory() Directory { return s.repo }

func validRole(role string) bool {
	return role == RoleAdmin || role == RoleSupervisor || role == RoleStaff
}

// checkSupervisorRef enforces that a staff employee's supervisor reference,
// when set, resolves to an employee with the supervisor role.
func (s *Service) checkSupervisorRef(ctx context.Context, e Employee) error {
	if e.Role != RoleStaff || e.SupervisorID == nil {
		return nil
	}
	sup, err := s.repo.Get(ctx, *e.SupervisorID)
	if err != nil {
		return err
	}
	if sup == nil || sup.Role != RoleSupervisor {
		return ErrBadSupervisor
	}
	return nil
}

// Create validates and inserts a new employee.
func (s *Service) Create(ctx context.Context, e Employee) (Employee, error) {
	if !validRole(e.Role) {
		return Employee{}, ErrInvalidRole
	}
	if err := s.checkSupervisorRef(ctx, e); err != nil {
		return Employee{}, err
	}
	return s.repo.Create(ctx, e)
}

// Update validates and overwrites an existing employee.
func (s *Service) Update(ctx context.Context, e Employee) (Employee, error) {
	if !validRole(e.Role) {
		return Employee{}, ErrInvalidRole
	}
	if err := s.checkSupervisorRef(ctx, e); err != nil {
		return Employee{}, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return Employee{}, err
	}
	return e, nil
}

// Delete removes an employee.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// List returns the full directory.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// Get returns one employee.
func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail returns one employee by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// CreateDepartment inserts a department.
func (s *Service) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	return s.repo.CreateDepartment(ctx, d)
}
