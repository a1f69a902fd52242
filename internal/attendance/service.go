package attendance

import (
	"context"
	"errors"
	"time"

	"absensipro/internal/employee"
)

var (
	// ErrForbidden means the acting user may not mark this attendance.
	ErrForbidden = errors.New("not allowed to mark attendance")
	// ErrInvalidStatus means the status override is not a known value.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrNotCheckedIn means a clock-out was attempted without a check-in today.
	ErrNotCheckedIn = errors.New("no check-in recorded today")
	// ErrNotFound means the target employee does not exist.
	ErrNotFound = errors.New("employee not found")
)

// Record is one employee-day attendance row.
type Record struct {
	ID         int64      `json:"id"`
	EmployeeID int64      `json:"employee_id"`
	Date       time.Time  `json:"date"`
	CheckIn    *time.Time `json:"check_in,omitempty"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	Status     string     `json:"status"`
}

// Statuses a record can carry.
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
	StatusLeave   = "leave"
	StatusSick    = "sick"
)

func validStatus(s string) bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusLeave, StatusSick:
		return true
	}
	return false
}

// Store is the persistence surface the service needs.
type Store interface {
	CheckIn(ctx context.Context, employeeID int64, date, checkIn time.Time, status string) (Record, error)
	ForDay(ctx context.Context, employeeID int64, date time.Time) (*Record, error)
	SetCheckOut(ctx context.Context, employeeID int64, date, checkOut time.Time) (Record, error)
	List(ctx context.Context, employeeID int64, limit int) ([]Record, error)
}

// Service records check-ins and clock-outs against the shared store.
type Service struct {
	store     Store
	directory employee.Directory
	now       func() time.Time
}

// NewService creates a service.
func NewService(store Store, directory employee.Directory) *Service {
	return &Service{store: store, directory: directory, now: time.Now}
}

// WithClock overrides the time source, used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// dateKey truncates a moment to its UTC calendar day.
func dateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckIn records arrival for an employee on the current day. An empty status
// defaults to present. A repeat call on the same day re-marks the status but
// keeps the first arrival time.
func (s *Service) CheckIn(ctx context.Context, employeeID int64, status string) (Record, error) {
	if status == "" {
		status = StatusPresent
	}
	if !validStatus(status) {
		return Record{}, ErrInvalidStatus
	}
	now := s.now().UTC()
	return s.store.CheckIn(ctx, employeeID, dateKey(now), now, status)
}

// Manual is the supervisor-initiated entry point. The acting user must be a
// supervisor or admin; a supervisor may only mark employees of their own
// department.
func (s *Service) Manual(ctx context.Context, supervisorID, employeeID int64, status string) (Record, error) {
	actor, err := s.directory.Get(ctx, supervisorID)
	if err != nil {
		return Record{}, err
	}
	if actor == nil || (actor.Role != employee.RoleSupervisor && actor.Role != employee.RoleAdmin) {
		return Record{}, ErrForbidden
	}
	target, err := s.directory.Get(ctx, employeeID)
	if err != nil {
		return Record{}, err
	}
	if target == nil {
		return Record{}, ErrNotFound
	}
	if actor.Role == employee.RoleSupervisor {
		if actor.DepartmentID == nil || target.DepartmentID == nil || *actor.DepartmentID != *target.DepartmentID {
			return Record{}, ErrForbidden
		}
	}
	return s.CheckIn(ctx, employeeID, status)
}

// ClockOut stamps departure on today's record.
func (s *Service) ClockOut(ctx context.Context, employeeID int64) (Record, error) {
	now := s.now().UTC()
	return s.store.SetCheckOut(ctx, employeeID, dateKey(now), now)
}

// List returns recent records, optionally scoped to one employee.
func (s *Service) List(ctx context.Context, employeeID int64, limit int) ([]Record, error) {
	return s.store.List(ctx, employeeID, limit)
}
