package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"absensipro/internal/activity"
	"absensipro/internal/approval"
	"absensipro/internal/attendance"
	"absensipro/internal/auth"
	"absensipro/internal/barcode"
	"absensipro/internal/config"
	"absensipro/internal/employee"
	"absensipro/internal/metrics"
	"absensipro/internal/queue"
)

// Handler exposes the services over HTTP.
type Handler struct {
	cfg        config.App
	employees  *employee.Service
	attendance *attendance.Service
	barcodes   *barcode.Service
	approvals  *approval.Service
	logs       *activity.Repository
	queue      queue.Queue
}

// New wires a handler.
func New(cfg config.App, employees *employee.Service, att *attendance.Service, barcodes *barcode.Service, approvals *approval.Service, logs *activity.Repository, q queue.Queue) *Handler {
	return &Handler{
		cfg:        cfg,
		employees:  employees,
		attendance: att,
		barcodes:   barcodes,
		approvals:  approvals,
		logs:       logs,
		queue:      q,
	}
}

// Routes mounts the API. Login and barcode scanning are public: staff
// self-check-in presents only a code and an email, no session.
func (h *Handler) Routes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/barcode/scan", h.ScanBarcode)

	authed := api.Group("", auth.EmployeeAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	authed.GET("/employees", h.ListEmployees)
	authed.POST("/employees", h.CreateEmployee)
	authed.PUT("/employees/:id", h.UpdateEmployee)
	authed.DELETE("/employees/:id", h.DeleteEmployee)

	authed.GET("/departments", h.ListDepartments)
	authed.POST("/departments", h.CreateDepartment)

	authed.GET("/attendance", h.ListAttendance)
	authed.POST("/attendance", h.SelfCheckIn)
	authed.POST("/attendance/checkout", h.ClockOut)
	authed.POST("/attendance/manual", h.ManualCheckIn)

	authed.POST("/barcode/generate", h.GenerateBarcode)
	authed.GET("/barcode/:supervisorId", h.ActiveBarcode)

	authed.GET("/leave", h.ListLeave)
	authed.POST("/leave", h.SubmitLeave)
	authed.PATCH("/leave/:id/decision", h.DecideLeave)

	authed.GET("/overtime", h.ListOvertime)
	authed.POST("/overtime", h.SubmitOvertime)
	authed.PATCH("/overtime/:id/decision", h.DecideOvertime)

	authed.GET("/settings", h.Settings)
	authed.GET("/shifts", h.Shifts)
	authed.GET("/reports/stats", h.ReportStats)
	authed.GET("/activity-logs", h.ActivityLogs)
}

// bindStrict decodes a JSON body rejecting unknown fields.
func bindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// fail maps service errors onto the HTTP taxonomy. Unclassified errors are
// logged with detail and surfaced as a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, barcode.ErrForbidden),
		errors.Is(err, attendance.ErrForbidden),
		errors.Is(err, approval.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, barcode.ErrNoDepartment),
		errors.Is(err, approval.ErrNotPending),
		errors.Is(err, approval.ErrInvalidDecision),
		errors.Is(err, approval.ErrInvalidRequest),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, employee.ErrInvalidRole),
		errors.Is(err, employee.ErrBadSupervisor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, barcode.ErrInvalidOrExpired),
		errors.Is(err, barcode.ErrStaffNotFound),
		errors.Is(err, barcode.ErrDepartmentMismatch):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, employee.ErrNotFound),
		errors.Is(err, approval.ErrNotFound),
		errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, barcode.ErrNoneActive):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, employee.ErrEmailTaken),
		errors.Is(err, employee.ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// audit publishes an activity event; failures are logged, never surfaced.
func (h *Handler) audit(c *gin.Context, action string, actorID int64, format string, args ...any) {
	if h.queue == nil {
		return
	}
	evt := queue.NewEvent(action, actorID, fmt.Sprintf(format, args...))
	if err := h.queue.Publish(c.Request.Context(), evt); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// ---------- Auth ----------

// Login resolves an employee by email and issues a JWT pair. The password is
// accepted as-is; hardening the credential check is out of scope here.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bindStrict(c, &req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
		return
	}
	emp, err := h.employees.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if emp == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "email not found"})
		return
	}
	tokens, err := auth.Issue(emp.ID, emp.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee":      emp,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Directory ----------

type employeeRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	DepartmentID *int64  `json:"departmentId"`
	SupervisorID *int64  `json:"supervisorId"`
	Phone        *string `json:"phone"`
	JoinDate     *string `json:"joinDate"`
	Status       string  `json:"status"`
}

func (req employeeRequest) toEmployee() (employee.Employee, error) {
	if req.Name == "" || req.Email == "" || req.Role == "" {
		return employee.Employee{}, errors.New("name, email and role are required")
	}
	e := employee.Employee{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		SupervisorID: req.SupervisorID,
		Phone:        req.Phone,
		Status:       req.Status,
	}
	if req.JoinDate != nil && *req.JoinDate != "" {
		d, err := parseDate(*req.JoinDate)
		if err != nil {
			return employee.Employee{}, errors.New("joinDate must be YYYY-MM-DD")
		}
		e.JoinDate = &d
	}
	return e, nil
}

func (h *Handler) ListEmployees(c *gin.Context) {
	emps, err := h.employees.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if emps == nil {
		emps = []employee.Employee{}
	}
	c.JSON(http.StatusOK, emps)
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req employeeRequest
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := req.toEmployee()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.employees.Create(c.Request.Context(), e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req employeeRequest
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := req.toEmployee()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e.ID = id
	updated, err := h.employees.Update(c.Request.Context(), e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.employees.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListDepartments(c *gin.Context) {
	deps, err := h.employees.ListDepartments(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if deps == nil {
		deps = []employee.Department{}
	}
	c.JSON(http.StatusOK, deps)
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Manager     *string `json:"manager"`
	}
	if err := bindStrict(c, &req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	created, err := h.employees.CreateDepartment(c.Request.Context(), employee.Department{
		Name:        req.Name,
		Description: req.Description,
		Manager:     req.Manager,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ---------- Attendance ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	var employeeID int64
	if v := c.Query("employee_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee_id"})
			return
		}
		employeeID = parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, err := h.attendance.List(c.Request.Context(), employeeID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) SelfCheckIn(c *gin.Context) {
	var req struct {
		EmployeeID int64  `json:"employeeId"`
		Status     string `json:"status"`
	}
	if err := bindStrict(c, &req); err != nil || req.EmployeeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employeeId required"})
		return
	}
	rec, err := h.attendance.CheckIn(c.Request.Context(), req.EmployeeID, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Checkins.WithLabelValues("self").Inc()
	h.audit(c, "checkin.self", req.EmployeeID, "employee %d checked in", req.EmployeeID)
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ClockOut(c *gin.Context) {
	var req struct {
		EmployeeID int64 `json:"employeeId"`
	}
	if err := bindStrict(c, &req); err != nil || req.EmployeeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employeeId required"})
		return
	}
	rec, err := h.attendance.ClockOut(c.Request.Context(), req.EmployeeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "checkout", req.EmployeeID, "employee %d clocked out", req.EmployeeID)
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) ManualCheckIn(c *gin.Context) {
	var req struct {
		SupervisorID int64  `json:"supervisorId"`
		EmployeeID   int64  `json:"employeeId"`
		Status       string `json:"status"`
	}
	if err := bindStrict(c, &req); err != nil || req.SupervisorID == 0 || req.EmployeeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "supervisorId and employeeId required"})
		return
	}
	rec, err := h.attendance.Manual(c.Request.Context(), req.SupervisorID, req.EmployeeID, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Checkins.WithLabelValues("manual").Inc()
	h.audit(c, "checkin.manual", req.SupervisorID, "supervisor %d marked employee %d %s", req.SupervisorID, req.EmployeeID, rec.Status)
	c.JSON(http.StatusCreated, rec)
}

// ---------- Barcode ----------

func (h *Handler) GenerateBarcode(c *gin.Context) {
	var req struct {
		SupervisorID  int64  `json:"supervisorId"`
		SessionNumber string `json:"sessionNumber"`
	}
	if err := bindStrict(c, &req); err != nil || req.SupervisorID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "supervisorId required"})
		return
	}
	result, err := h.barcodes.Issue(c.Request.Context(), req.SupervisorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.BarcodesIssued.Inc()
	h.audit(c, "barcode.issue", req.SupervisorID, "supervisor %d issued barcode for %s", req.SupervisorID, result.Department)
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ActiveBarcode(c *gin.Context) {
	id, ok := pathID(c, "supervisorId")
	if !ok {
		return
	}
	tok, err := h.barcodes.Active(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

func (h *Handler) ScanBarcode(c *gin.Context) {
	var req struct {
		Code       string `json:"code"`
		StaffEmail string `json:"staffEmail"`
	}
	if err := bindStrict(c, &req); err != nil || req.Code == "" || req.StaffEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and staffEmail required"})
		return
	}
	profile, rec, err := h.barcodes.Redeem(c.Request.Context(), req.Code, req.StaffEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Checkins.WithLabelValues("barcode").Inc()
	h.audit(c, "checkin.barcode", profile.ID, "%s checked in via barcode", profile.Email)
	c.JSON(http.StatusOK, gin.H{"staff": profile, "attendance": rec})
}

// ---------- Leave & Overtime ----------

func (h *Handler) ListLeave(c *gin.Context) {
	var employeeID int64
	if v := c.Query("employee_id"); v != "" {
		employeeID, _ = strconv.ParseInt(v, 10, 64)
	}
	reqs, err := h.approvals.ListLeave(c.Request.Context(), employeeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []approval.LeaveRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) SubmitLeave(c *gin.Context) {
	var req struct {
		EmployeeID int64  `json:"employeeId"`
		Type       string `json:"type"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
		Reason     string `json:"reason"`
	}
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be YYYY-MM-DD"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be YYYY-MM-DD"})
		return
	}
	created, err := h.approvals.SubmitLeave(c.Request.Context(), approval.LeaveRequest{
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "leave.submit", req.EmployeeID, "employee %d requested %s leave", req.EmployeeID, req.Type)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) DecideLeave(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ApproverID int64  `json:"approverId"`
		Decision   string `json:"decision"`
	}
	if err := bindStrict(c, &req); err != nil || req.ApproverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approverId and decision required"})
		return
	}
	updated, err := h.approvals.DecideLeave(c.Request.Context(), id, req.ApproverID, req.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Decisions.WithLabelValues(approval.KindLeave, updated.Status).Inc()
	h.audit(c, "leave.decide", req.ApproverID, "leave request %d %s by %d", id, updated.Status, req.ApproverID)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ListOvertime(c *gin.Context) {
	var employeeID int64
	if v := c.Query("employee_id"); v != "" {
		employeeID, _ = strconv.ParseInt(v, 10, 64)
	}
	reqs, err := h.approvals.ListOvertime(c.Request.Context(), employeeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []approval.OvertimeRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) SubmitOvertime(c *gin.Context) {
	var req struct {
		EmployeeID int64  `json:"employeeId"`
		Date       string `json:"date"`
		StartTime  string `json:"startTime"`
		EndTime    string `json:"endTime"`
		Reason     string `json:"reason"`
	}
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	created, err := h.approvals.SubmitOvertime(c.Request.Context(), approval.OvertimeRequest{
		EmployeeID: req.EmployeeID,
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Reason:     req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "overtime.submit", req.EmployeeID, "employee %d requested overtime on %s", req.EmployeeID, req.Date)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) DecideOvertime(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ApproverID int64  `json:"approverId"`
		Decision   string `json:"decision"`
	}
	if err := bindStrict(c, &req); err != nil || req.ApproverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approverId and decision required"})
		return
	}
	updated, err := h.approvals.DecideOvertime(c.Request.Context(), id, req.ApproverID, req.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Decisions.WithLabelValues(approval.KindOvertime, updated.Status).Inc()
	h.audit(c, "overtime.decide", req.ApproverID, "overtime request %d %s by %d", id, updated.Status, req.ApproverID)
	c.JSON(http.StatusOK, updated)
}

// ---------- Settings & Reports ----------

func (h *Handler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"companyName":   h.cfg.CompanyName,
		"workStartTime": h.cfg.WorkStart,
		"workEndTime":   h.cfg.WorkEnd,
		"lateThreshold": h.cfg.LateThresholdMin,
	})
}

func (h *Handler) Shifts(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"id": "shift-1", "name": "Regular", "startTime": h.cfg.WorkStart, "endTime": h.cfg.WorkEnd},
		{"id": "shift-2", "name": "Early", "startTime": "07:00", "endTime": "16:00"},
		{"id": "shift-3", "name": "Late", "startTime": "14:00", "endTime": "23:00"},
	})
}

// ReportStats returns the raw rows the client aggregates; no computation here.
func (h *Handler) ReportStats(c *gin.Context) {
	emps, err := h.employees.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	records, err := h.attendance.List(c.Request.Context(), 0, 1000)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": emps, "attendance": records})
}

func (h *Handler) ActivityLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.logs.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	c.JSON(http.StatusOK, logs)
}
