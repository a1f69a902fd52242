package attendance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"absensipro/internal/employee"
)

type fakeStore struct {
	recs   map[string]*Record
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]*Record{}}
}

func key(employeeID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", employeeID, date.Format("2006-01-02"))
}

func (f *fakeStore) CheckIn(_ context.Context, employeeID int64, date, checkIn time.Time, status string) (Record, error) {
	k := key(employeeID, date)
	if existing, ok := f.recs[k]; ok {
		existing.Status = status
		return *existing, nil
	}
	f.nextID++
	ci := checkIn
	rec := &Record{ID: f.nextID, EmployeeID: employeeID, Date: date, CheckIn: &ci, Status: status}
	f.recs[k] = rec
	return *rec, nil
}

func (f *fakeStore) ForDay(_ context.Context, employeeID int64, date time.Time) (*Record, error) {
	if rec, ok := f.recs[key(employeeID, date)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) SetCheckOut(_ context.Context, employeeID int64, date, checkOut time.Time) (Record, error) {
	rec, ok := f.recs[key(employeeID, date)]
	if !ok {
		return Record{}, ErrNotCheckedIn
	}
	co := checkOut
	rec.CheckOut = &co
	return *rec, nil
}

func (f *fakeStore) List(_ context.Context, employeeID int64, _ int) ([]Record, error) {
	var res []Record
	for _, rec := range f.recs {
		if employeeID == 0 || rec.EmployeeID == employeeID {
			res = append(res, *rec)
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

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*employee.Employee, error) {
	for _, e := range d.emps {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) GetDepartment(_ context.Context, id int64) (*employee.Department, error) {
	return &employee.Department{ID: id, Name: "IT"}, nil
}

func deptID(id int64) *int64 { return &id }

func testDirectory() *fakeDirectory {
	return &fakeDirectory{emps: map[int64]*employee.Employee{
		1: {ID: 1, Name: "Sari", Email: "sari@company.com", Role: employee.RoleSupervisor, DepartmentID: deptID(10)},
		2: {ID: 2, Name: "Budi", Email: "budi@company.com", Role: employee.RoleStaff, DepartmentID: deptID(10)},
		3: {ID: 3, Name: "Rina", Email: "rina@company.com", Role: employee.RoleStaff, DepartmentID: deptID(20)},
		4: {ID: 4, Name: "Admin", Email: "admin@company.com", Role: employee.RoleAdmin},
	}}
}

func TestCheckInDefaultsToPresent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())

	rec, err := svc.CheckIn(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Errorf("status = %q, want %q", rec.Status, StatusPresent)
	}
	if rec.CheckIn == nil {
		t.Error("check_in not set")
	}
}

func TestCheckInRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	if _, err := svc.CheckIn(context.Background(), 2, "vacationing"); err != ErrInvalidStatus {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestRepeatCheckInKeepsOriginalArrival(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	now := base
	svc := NewService(store, testDirectory()).WithClock(func() time.Time { return now })

	first, err := svc.CheckIn(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("first CheckIn: %v", err)
	}

	now = base.Add(3 * time.Hour)
	second, err := svc.CheckIn(context.Background(), 2, StatusLate)
	if err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second check-in created a new record: id %d vs %d", second.ID, first.ID)
	}
	if !second.CheckIn.Equal(*first.CheckIn) {
		t.Errorf("check_in overwritten: %v vs %v", second.CheckIn, first.CheckIn)
	}
	if second.Status != StatusLate {
		t.Errorf("status = %q, want %q", second.Status, StatusLate)
	}
	if len(store.recs) != 1 {
		t.Errorf("store has %d records, want 1", len(store.recs))
	}
}

func TestManualRequiresSupervisor(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())

	// staff actor
	if _, err := svc.Manual(context.Background(), 2, 3, ""); err != ErrForbidden {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// unknown actor
	if _, err := svc.Manual(context.Background(), 99, 2, ""); err != ErrForbidden {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(store.recs) != 0 {
		t.Errorf("forbidden manual check-in mutated the store: %d records", len(store.recs))
	}
}

func TestManualScopedToOwnDepartment(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())

	// supervisor 1 (dept 10) marking staff 3 (dept 20)
	if _, err := svc.Manual(context.Background(), 1, 3, ""); err != ErrForbidden {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// own department succeeds
	rec, err := svc.Manual(context.Background(), 1, 2, StatusSick)
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if rec.Status != StatusSick {
		t.Errorf("status = %q, want %q", rec.Status, StatusSick)
	}
}

func TestManualAdminBypassesDepartmentScope(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	if _, err := svc.Manual(context.Background(), 4, 3, ""); err != nil {
		t.Fatalf("admin manual check-in: %v", err)
	}
}

func TestClockOutWithoutCheckIn(t *testing.T) {
	svc := NewService(newFakeStore(), testDirectory())
	if _, err := svc.ClockOut(context.Background(), 2); err != ErrNotCheckedIn {
		t.Fatalf("err = %v, want ErrNotCheckedIn", err)
	}
}

func TestClockOutStampsDeparture(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDirectory())
	if _, err := svc.CheckIn(context.Background(), 2, ""); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	rec, err := svc.ClockOut(context.Background(), 2)
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if rec.CheckOut == nil {
		t.Error("check_out not set")
	}
}
