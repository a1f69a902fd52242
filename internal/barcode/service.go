package barcode

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"absensipro/internal/attendance"
	"absensipro/internal/employee"
)

var (
	// ErrForbidden means the caller is not a supervisor.
	ErrForbidden = errors.New("only supervisors can manage barcodes")
	// ErrNoDepartment means the supervisor has no department assignment.
	ErrNoDepartment = errors.New("supervisor has no department")
	// ErrInvalidOrExpired merges missing, inactive and expired barcodes into
	// one signal so a caller cannot tell which case applied.
	ErrInvalidOrExpired = errors.New("barcode invalid or expired")
	// ErrStaffNotFound means no staff employee matched the email.
	ErrStaffNotFound = errors.New("staff not found")
	// ErrDepartmentMismatch means the staff belongs to another department.
	ErrDepartmentMismatch = errors.New("not authorized for this department")
	// ErrNoneActive means the supervisor has no active barcode.
	ErrNoneActive = errors.New("no active barcode")
)

// Token is a time-limited check-in credential scoped to a department.
type Token struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	SupervisorID int64     `json:"supervisor_id"`
	DepartmentID int64     `json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Active       bool      `json:"is_active"`
}

// IssueResult is the issuance response: the token plus its department name.
type IssueResult struct {
	Token      Token  `json:"barcode"`
	Department string `json:"department"`
}

// StaffProfile is the redemption response for a checked-in staff member.
type StaffProfile struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// TokenStore is the persistence surface the service needs.
type TokenStore interface {
	Issue(ctx context.Context, t Token) (Token, error)
	Active(ctx context.Context, supervisorID int64) (*Token, error)
	ByCode(ctx context.Context, code string) (*Token, error)
}

// Cache is an optional non-authoritative read cache for active tokens.
// Issuance and redemption never consult it; only the active-token lookup does.
type Cache interface {
	Put(ctx context.Context, supervisorID int64, payload any, expiresAt time.Time) error
	Get(ctx context.Context, supervisorID int64, dst any) bool
	Drop(ctx context.Context, supervisorID int64)
}

// Service mints and redeems check-in barcodes.
type Service struct {
	tokens    TokenStore
	directory employee.Directory
	marker    *attendance.Service
	cache     Cache
	validity  time.Duration
	now       func() time.Time
}

// NewService creates a service. cache may be nil. validity is the policy
// window a fresh barcode stays redeemable.
func NewService(tokens TokenStore, directory employee.Directory, marker *attendance.Service, cache Cache, validity time.Duration) *Service {
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &Service{
		tokens:    tokens,
		directory: directory,
		marker:    marker,
		cache:     cache,
		validity:  validity,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// newCode returns a 128-bit opaque code, hex encoded.
func newCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue mints a fresh barcode for the supervisor's department, deactivating
// any prior active barcode in the same transaction.
func (s *Service) Issue(ctx context.Context, supervisorID int64) (IssueResult, error) {
	sup, err := s.directory.Get(ctx, supervisorID)
	if err != nil {
		return IssueResult{}, err
	}
	if sup == nil || sup.Role != employee.RoleSupervisor {
		return IssueResult{}, ErrForbidden
	}
	if sup.DepartmentID == nil {
		return IssueResult{}, ErrNoDepartment
	}
	dept, err := s.directory.GetDepartment(ctx, *sup.DepartmentID)
	if err != nil {
		return IssueResult{}, err
	}
	if dept == nil {
		return IssueResult{}, ErrNoDepartment
	}

	code, err := newCode()
	if err != nil {
		return IssueResult{}, err
	}
	now := s.now().UTC()
	tok, err := s.tokens.Issue(ctx, Token{
		Code:         code,
		SupervisorID: supervisorID,
		DepartmentID: dept.ID,
		ExpiresAt:    now.Add(s.validity),
	})
	if err != nil {
		return IssueResult{}, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, supervisorID, tok, tok.ExpiresAt); err != nil {
			s.cache.Drop(ctx, supervisorID)
		}
	}
	return IssueResult{Token: tok, Department: dept.Name}, nil
}

// Active returns the supervisor's current barcode. The cache is consulted
// first; a miss falls through to the store.
func (s *Service) Active(ctx context.Context, supervisorID int64) (Token, error) {
	if s.cache != nil {
		var cached Token
		if s.cache.Get(ctx, supervisorID, &cached) && cached.Active && s.now().Before(cached.ExpiresAt) {
			return cached, nil
		}
	}
	tok, err := s.tokens.Active(ctx, supervisorID)
	if err != nil {
		return Token{}, err
	}
	if tok == nil {
		return Token{}, ErrNoneActive
	}
	return *tok, nil
}

// Redeem validates a presented code for a staff email and records the
// check-in. Validation order: token, then staff, then department scope.
// The token itself is untouched; it stays redeemable until expiry or
// supersession, so a whole department can share one code.
func (s *Service) Redeem(ctx context.Context, code, staffEmail string) (StaffProfile, attendance.Record, error) {
	tok, err := s.tokens.ByCode(ctx, code)
	if err != nil {
		return StaffProfile{}, attendance.Record{}, err
	}
	if tok == nil || !tok.Active || !s.now().Before(tok.ExpiresAt) {
		return StaffProfile{}, attendance.Record{}, ErrInvalidOrExpired
	}

	staff, err := s.directory.GetByEmail(ctx, staffEmail)
	if err != nil {
		return StaffProfile{}, attendance.Record{}, err
	}
	if staff == nil || staff.Role != employee.RoleStaff {
		return StaffProfile{}, attendance.Record{}, ErrStaffNotFound
	}
	if staff.DepartmentID == nil || *staff.DepartmentID != tok.DepartmentID {
		return StaffProfile{}, attendance.Record{}, ErrDepartmentMismatch
	}

	rec, err := s.marker.CheckIn(ctx, staff.ID, "")
	if err != nil {
		return StaffProfile{}, attendance.Record{}, err
	}

	deptName := ""
	if dept, err := s.directory.GetDepartment(ctx, tok.DepartmentID); err == nil && dept != nil {
		deptName = dept.Name
	}
	profile := StaffProfile{
		ID:         staff.ID,
		Name:       staff.Name,
		Email:      staff.Email,
		Department: deptName,
		Position:   cases.Title(language.English).String(staff.Role),
	}
	return profile, rec, nil
}
