package approval

import (
	"context"
	"errors"
	"time"

	"absensipro/internal/employee"
)

var (
	// ErrNotFound means no request matched the id.
	ErrNotFound = errors.New("request not found")
	// ErrNotPending means the request was already decided.
	ErrNotPending = errors.New("request is not pending")
	// ErrForbidden means the acting user may not decide this request.
	ErrForbidden = errors.New("not allowed to decide this request")
	// ErrInvalidDecision means the decision is neither approve nor reject.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
	// ErrInvalidRequest means the submitted request fails validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request lifecycle states. Both terminal states are final; a request is
// decided exactly once and never reopened.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request kinds.
const (
	KindLeave    = "leave"
	KindOvertime = "overtime"
)

// Leave types accepted on submission.
const (
	LeaveAnnual   = "annual"
	LeaveSick     = "sick"
	LeavePersonal = "personal"
)

// LeaveRequest is a date-range absence request.
type LeaveRequest struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	Type       string    `json:"type"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	ApproverID *int64    `json:"approver_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OvertimeRequest is a single-day extra-hours request.
type OvertimeRequest struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	Date       time.Time `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	ApproverID *int64    `json:"approver_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the persistence surface the service needs.
type Store interface {
	CreateLeave(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	CreateOvertime(ctx context.Context, req OvertimeRequest) (OvertimeRequest, error)
	GetLeave(ctx context.Context, id int64) (*LeaveRequest, error)
	GetOvertime(ctx context.Context, id int64) (*OvertimeRequest, error)
	DecideLeave(ctx context.Context, id, approverID int64, status string) (LeaveRequest, error)
	DecideOvertime(ctx context.Context, id, approverID int64, status string) (OvertimeRequest, error)
	ListLeave(ctx context.Context, employeeID int64) ([]LeaveRequest, error)
	ListOvertime(ctx context.Context, employeeID int64) ([]OvertimeRequest, error)
}

// Service runs the pending/approved/rejected workflow for leave and overtime.
type Service struct {
	store     Store
	directory employee.Directory
}

// NewService creates a service.
func NewService(store Store, directory employee.Directory) *Service {
	return &Service{store: store, directory: directory}
}

// SubmitLeave creates a pending leave request.
func (s *Service) SubmitLeave(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	switch req.Type {
	case LeaveAnnual, LeaveSick, LeavePersonal:
	default:
		return LeaveRequest{}, ErrInvalidRequest
	}
	if req.EmployeeID == 0 || req.EndDate.Before(req.StartDate) {
		return LeaveRequest{}, ErrInvalidRequest
	}
	return s.store.CreateLeave(ctx, req)
}

// SubmitOvertime creates a pending overtime request.
func (s *Service) SubmitOvertime(ctx context.Context, req OvertimeRequest) (OvertimeRequest, error) {
	if req.EmployeeID == 0 || req.Date.IsZero() || req.StartTime == "" || req.EndTime == "" {
		return OvertimeRequest{}, ErrInvalidRequest
	}
	return s.store.CreateOvertime(ctx, req)
}

// authorize checks that the approver may decide a request for requesterID.
// Admins may decide anything; supervisors only requests from their own
// department.
func (s *Service) authorize(ctx context.Context, approverID, requesterID int64) error {
	approver, err := s.directory.Get(ctx, approverID)
	if err != nil {
		return err
	}
	if approver == nil {
		return ErrForbidden
	}
	switch approver.Role {
	case employee.RoleAdmin:
		return nil
	case employee.RoleSupervisor:
	default:
		return ErrForbidden
	}
	requester, err := s.directory.Get(ctx, requesterID)
	if err != nil {
		return err
	}
	if requester == nil || requester.DepartmentID == nil || approver.DepartmentID == nil ||
		*requester.DepartmentID != *approver.DepartmentID {
		return ErrForbidden
	}
	return nil
}

func decisionStatus(decision string) (string, error) {
	switch decision {
	case StatusApproved, "approve":
		return StatusApproved, nil
	case StatusRejected, "reject":
		return StatusRejected, nil
	}
	return "", ErrInvalidDecision
}

// DecideLeave transitions a pending leave request exactly once.
func (s *Service) DecideLeave(ctx context.Context, id, approverID int64, decision string) (LeaveRequest, error) {
	status, err := decisionStatus(decision)
	if err != nil {
		return LeaveRequest{}, err
	}
	req, err := s.store.GetLeave(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req == nil {
		return LeaveRequest{}, ErrNotFound
	}
	if err := s.authorize(ctx, approverID, req.EmployeeID); err != nil {
		return LeaveRequest{}, err
	}
	return s.store.DecideLeave(ctx, id, approverID, status)
}

// DecideOvertime transitions a pending overtime request exactly once.
func (s *Service) DecideOvertime(ctx context.Context, id, approverID int64, decision string) (OvertimeRequest, error) {
	status, err := decisionStatus(decision)
	if err != nil {
		return OvertimeRequest{}, err
	}
	req, err := s.store.GetOvertime(ctx, id)
	if err != nil {
		return OvertimeRequest{}, err
	}
	if req == nil {
		return OvertimeRequest{}, ErrNotFound
	}
	if err := s.authorize(ctx, approverID, req.EmployeeID); err != nil {
		return OvertimeRequest{}, err
	}
	return s.store.DecideOvertime(ctx, id, approverID, status)
}

// ListLeave returns leave requests, optionally scoped to one employee.
func (s *Service) ListLeave(ctx context.Context, employeeID int64) ([]LeaveRequest, error) {
	return s.store.ListLeave(ctx, employeeID)
}

// ListOvertime returns overtime requests, optionally scoped to one employee.
func (s *Service) ListOvertime(ctx context.Context, employeeID int64) ([]OvertimeRequest, error) {
	return s.store.ListOvertime(ctx, employeeID)
}
