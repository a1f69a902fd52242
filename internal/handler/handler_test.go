package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"absensipro/internal/attendance"
	"absensipro/internal/barcode"
	"absensipro/internal/config"
	"absensipro/internal/employee"
	"absensipro/internal/queue"
)

type tokenStore struct {
	tokens []*barcode.Token
	nextID int64
}

func (f *tokenStore) Issue(_ context.Context, t barcode.Token) (barcode.Token, error) {
	for _, prior := range f.tokens {
		if prior.SupervisorID == t.SupervisorID {
			prior.Active = false
		}
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now().UTC()
	t.Active = true
	cp := t
	f.tokens = append(f.tokens, &cp)
	return t, nil
}

func (f *tokenStore) Active(_ context.Context, supervisorID int64) (*barcode.Token, error) {
	for _, t := range f.tokens {
		if t.SupervisorID == supervisorID && t.Active && time.Now().Before(t.ExpiresAt) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *tokenStore) ByCode(_ context.Context, code string) (*barcode.Token, error) {
	for _, t := range f.tokens {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

type attendanceStore struct {
	recs map[int64]*attendance.Record
	next int64
}

func (f *attendanceStore) CheckIn(_ context.Context, employeeID int64, date, checkIn time.Time, status string) (attendance.Record, error) {
	if existing, ok := f.recs[employeeID]; ok && existing.Date.Equal(date) {
		existing.Status = status
		return *existing, nil
	}
	f.next++
	ci := checkIn
	rec := &attendance.Record{ID: f.next, EmployeeID: employeeID, Date: date, CheckIn: &ci, Status: status}
	f.recs[employeeID] = rec
	return *rec, nil
}

func (f *attendanceStore) ForDay(_ context.Context, employeeID int64, _ time.Time) (*attendance.Record, error) {
	return f.recs[employeeID], nil
}

func (f *attendanceStore) SetCheckOut(_ context.Context, employeeID int64, _, checkOut time.Time) (attendance.Record, error) {
	rec := f.recs[employeeID]
	co := checkOut
	rec.CheckOut = &co
	return *rec, nil
}

func (f *attendanceStore) List(_ context.Context, _ int64, _ int) ([]attendance.Record, error) {
	return nil, nil
}

type directory struct {
	emps  map[int64]*employee.Employee
	depts map[int64]*employee.Department
}

func (d *directory) Get(_ context.Context, id int64) (*employee.Employee, error) {
	return d.emps[id], nil
}

func (d *directory) GetByEmail(_ context.Context, email string) (*employee.Employee, error) {
	for _, e := range d.emps {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, nil
}

func (d *directory) GetDepartment(_ context.Context, id int64) (*employee.Department, error) {
	return d.depts[id], nil
}

func ref(id int64) *int64 { return &id }

// newTestRouter wires a router around fake stores with one supervisor (id 1,
// dept IT) and one staff member in each of IT and HR.
func newTestRouter(t *testing.T) (*gin.Engine, *barcode.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := &directory{
		emps: map[int64]*employee.Employee{
			1: {ID: 1, Name: "Sari", Email: "sari@company.com", Role: employee.RoleSupervisor, DepartmentID: ref(10)},
			2: {ID: 2, Name: "Budi", Email: "staff@company.com", Role: employee.RoleStaff, DepartmentID: ref(10)},
			3: {ID: 3, Name: "Rina", Email: "hr@company.com", Role: employee.RoleStaff, DepartmentID: ref(20)},
		},
		depts: map[int64]*employee.Department{
			10: {ID: 10, Name: "IT"},
			20: {ID: 20, Name: "HR"},
		},
	}
	att := attendance.NewService(&attendanceStore{recs: map[int64]*attendance.Record{}}, dir)
	barcodes := barcode.NewService(&tokenStore{}, dir, att, nil, time.Hour)

	cfg := config.Load()
	h := New(cfg, nil, att, barcodes, nil, nil, queue.NewInMemory(16))

	r := gin.New()
	h.Routes(r)
	return r, barcodes
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScanBarcodeSuccess(t *testing.T) {
	r, barcodes := newTestRouter(t)

	issued, err := barcodes.Issue(context.Background(), 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := doJSON(r, http.MethodPost, "/api/barcode/scan",
		`{"code":"`+issued.Token.Code+`","staffEmail":"staff@company.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Staff struct {
			Position   string `json:"position"`
			Department string `json:"department"`
		} `json:"staff"`
		Attendance struct {
			Status string `json:"status"`
		} `json:"attendance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Staff.Position != "Staff" {
		t.Errorf("position = %q, want Staff", resp.Staff.Position)
	}
	if resp.Staff.Department != "IT" {
		t.Errorf("department = %q, want IT", resp.Staff.Department)
	}
	if resp.Attendance.Status != "present" {
		t.Errorf("attendance status = %q, want present", resp.Attendance.Status)
	}
}

func TestScanBarcodeWrongDepartment(t *testing.T) {
	r, barcodes := newTestRouter(t)

	issued, err := barcodes.Issue(context.Background(), 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	w := doJSON(r, http.MethodPost, "/api/barcode/scan",
		`{"code":"`+issued.Token.Code+`","staffEmail":"hr@company.com"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestScanBarcodeUnknownCode(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/barcode/scan",
		`{"code":"deadbeef","staffEmail":"staff@company.com"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestScanBarcodeRejectsUnknownFields(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/barcode/scan",
		`{"code":"x","staffEmail":"staff@company.com","isAdmin":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestScanBarcodeMissingFields(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/barcode/scan", `{"code":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/barcode/generate", `{"supervisorId":1}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
