package approval

import (
	"context"
	"testing"
	"time"

	"absensipro/internal/employee"
)

type fakeStore struct {
	leaves    map[int64]*LeaveRequest
	overtimes map[int64]*OvertimeRequest
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{leaves: map[int64]*LeaveRequest{}, overtimes: map[int64]*OvertimeRequest{}}
}

func (f *fakeStore) CreateLeave(_ context.Context, req LeaveRequest) (LeaveRequest, error) {
	f.nextID++
	req.ID = f.nextID
	req.Status = StatusPending
	req.CreatedAt = time.Now().UTC()
	cp := req
	f.leaves[req.ID] = &cp
	return req, nil
}

func (f *fakeStore) CreateOvertime(_ context.Context, req OvertimeRequest) (OvertimeRequest, error) {
	f.nextID++
	req.ID = f.nextID
	req.Status = StatusPending
	req.CreatedAt = time.Now().UTC()
	cp := req
	f.overtimes[req.ID] = &cp
	return req, nil
}

func (f *fakeStore) GetLeave(_ context.Context, id int64) (*LeaveRequest, error) {
	if req, ok := f.leaves[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOvertime(_ context.Context, id int64) (*OvertimeRequest, error) {
	if req, ok := f.overtimes[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) DecideLeave(_ context.Context, id, approverID int64, status string) (LeaveRequest, error) {
	req, ok := f.leaves[id]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, ErrNotPending
	}
	req.Status = status
	req.ApproverID = &approverID
	return *req, nil
}

func (f *fakeStore) DecideOvertime(_ context.Context, id, approverID int64, status string) (OvertimeRequest, error) {
	req, ok := f.overtimes[id]
	if !ok {
		return OvertimeRequest{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return OvertimeRequest{}, ErrNotPending
	}
	req.Status = status
	req.ApproverID = &approverID
	return *req, nil
}

func (f *fakeStore) ListLeave(_ context.Context, employeeID int64) ([]LeaveRequest, error) {
	var res []LeaveRequest
	for _, req := range f.leaves {
		if employeeID == 0 || req.EmployeeID == employeeID {
			res = append(res, *req)
		}
	}
	return res, nil
}

func (f *fakeStore) ListOvertime(_ context.Context, employeeID int64) ([]OvertimeRequest, error) {
	var res []OvertimeRequest
	for _, req := range f.overtimes {
		if employeeID == 0 || req.EmployeeID == employeeID {
			res = append(res, *req)
		}
	}
	return res, nil
}

type fakeDirectory struct {
	emps map[int64]*employee.Employee
}

func (d *fakeDirectory) Get(_ context.Context, id int64) (*employee.Employee, error) {
	return d.emps[id], nil
}

func (d *fakeDirectory) GetByEmail(_ context.Context, _ string) (*employee.Employee, error) {
	return nil, nil
}

func (d *fakeDirectory) GetDepartment(_ context.Context, id int64) (*employee.Department, error) {
	return &employee.Department{ID: id}, nil
}

func ref(id int64) *int64 { return &id }

func testDirectory() *fakeDirectory {
	return &fakeDirectory{emps: map[int64]*employee.Employee{
		1: {ID: 1, Role: employee.RoleSupervisor, DepartmentID: ref(10)},
		2: {ID: 2, Role: employee.RoleStaff, DepartmentID: ref(10)},
		3: {ID: 3, Role: employee.RoleStaff, DepartmentID: ref(20)},
		4: {ID: 4, Role: employee.RoleAdmin},
		6: {ID: 6, Role: employee.RoleSupervisor, DepartmentID: ref(20)},
	}}
}

func submitLeave(t *testing.T, svc *Service, employeeID int64) LeaveRequest {
	t.Helper()
	req, err := svc.SubmitLeave(context.Background(), LeaveRequest{
		EmployeeID: employeeID,
		Type:       LeaveAnnual,
		StartDate:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		Reason:     "family trip",
	})
	if err != nil {
		t.Fatalf("SubmitLeave: %v", err)
	}
	return req
}

func TestSubmitLeaveStartsPending(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	req := submitLeave(t, svc, 2)
	if req.Status != StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if req.ApproverID != nil {
		t.Error("approver set before any decision")
	}
}

func TestSubmitLeaveValidation(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	ctx := context.Background()

	_, err := svc.SubmitLeave(ctx, LeaveRequest{EmployeeID: 2, Type: "sabbatical",
		StartDate: time.Now(), EndDate: time.Now()})
	if err != ErrInvalidRequest {
		t.Errorf("unknown type: err = %v, want ErrInvalidRequest", err)
	}

	_, err = svc.SubmitLeave(ctx, LeaveRequest{EmployeeID: 2, Type: LeaveAnnual,
		StartDate: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)})
	if err != ErrInvalidRequest {
		t.Errorf("inverted range: err = %v, want ErrInvalidRequest", err)
	}
}

func TestDecideLeaveApprove(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	req := submitLeave(t, svc, 2)

	decided, err := svc.DecideLeave(context.Background(), req.ID, 1, "approve")
	if err != nil {
		t.Fatalf("DecideLeave: %v", err)
	}
	if decided.Status != StatusApproved {
		t.Errorf("status = %q, want approved", decided.Status)
	}
	if decided.ApproverID == nil || *decided.ApproverID != 1 {
		t.Errorf("approver = %v, want 1", decided.ApproverID)
	}
}

func TestDecisionIsOneShot(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())
	req := submitLeave(t, svc, 2)

	if _, err := svc.DecideLeave(context.Background(), req.ID, 1, StatusApproved); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	if _, err := svc.DecideLeave(context.Background(), req.ID, 1, StatusRejected); err != ErrNotPending {
		t.Fatalf("second decision: err = %v, want ErrNotPending", err)
	}
	if store.leaves[req.ID].Status != StatusApproved {
		t.Errorf("status changed by the failed second decision: %q", store.leaves[req.ID].Status)
	}
}

func TestDecideLeaveAuthorization(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	ctx := context.Background()

	// staff cannot decide
	req := submitLeave(t, svc, 2)
	if _, err := svc.DecideLeave(ctx, req.ID, 3, StatusApproved); err != ErrForbidden {
		t.Errorf("staff approver: err = %v, want ErrForbidden", err)
	}
	// supervisor of another department cannot decide
	if _, err := svc.DecideLeave(ctx, req.ID, 6, StatusApproved); err != ErrForbidden {
		t.Errorf("cross-department supervisor: err = %v, want ErrForbidden", err)
	}
	// admin can decide anything
	if _, err := svc.DecideLeave(ctx, req.ID, 4, StatusApproved); err != nil {
		t.Errorf("admin approver: %v", err)
	}
}

func TestDecideLeaveUnknownRequest(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	if _, err := svc.DecideLeave(context.Background(), 42, 1, StatusApproved); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDecideInvalidDecision(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	req := submitLeave(t, svc, 2)
	if _, err := svc.DecideLeave(context.Background(), req.ID, 1, "maybe"); err != ErrInvalidDecision {
		t.Fatalf("err = %v, want ErrInvalidDecision", err)
	}
}

func TestOvertimeLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())
	ctx := context.Background()

	req, err := svc.SubmitOvertime(ctx, OvertimeRequest{
		EmployeeID: 2,
		Date:       time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
		StartTime:  "18:00",
		EndTime:    "21:00",
		Reason:     "release night",
	})
	if err != nil {
		t.Fatalf("SubmitOvertime: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}

	decided, err := svc.DecideOvertime(ctx, req.ID, 1, "reject")
	if err != nil {
		t.Fatalf("DecideOvertime: %v", err)
	}
	if decided.Status != StatusRejected {
		t.Errorf("status = %q, want rejected", decided.Status)
	}
	if _, err := svc.DecideOvertime(ctx, req.ID, 1, StatusApproved); err != ErrNotPending {
		t.Errorf("second decision: err = %v, want ErrNotPending", err)
	}
}

func TestSubmitOvertimeValidation(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	_, err := svc.SubmitOvertime(context.Background(), OvertimeRequest{EmployeeID: 2})
	if err != ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}
