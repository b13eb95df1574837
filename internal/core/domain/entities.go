package domain

import (
	"strings"
	"time"
)

// Role represents user role in the system
type Role string

const (
	RoleUser     Role = "USER"
	RoleStaff    Role = "STAFF"
	RoleApprover Role = "APPROVER"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff reports whether the role may act on behalf of the ministry
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleApprover || r == RoleAdmin
}

// ============================================================
// Asset
// ============================================================

// AssetStatus is the allocation state of a physical asset
type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetLoaned      AssetStatus = "loaned"
	AssetMaintenance AssetStatus = "maintenance"
	AssetRetired     AssetStatus = "retired"
)

// AssetCondition is the physical condition recorded on an asset or loan item
type AssetCondition string

const (
	ConditionExcellent AssetCondition = "excellent"
	ConditionGood      AssetCondition = "good"
	ConditionFair      AssetCondition = "fair"
	ConditionPoor      AssetCondition = "poor"
	ConditionDamaged   AssetCondition = "damaged"
)

// Valid reports whether c is a known condition
func (c AssetCondition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged:
		return true
	}
	return false
}

// RequiresMaintenance reports whether an asset returned in this condition
// must go to maintenance instead of back into the pool
func (c AssetCondition) RequiresMaintenance() bool {
	return c == ConditionPoor || c == ConditionDamaged
}

// ============================================================
// Loan
// ============================================================

// LoanStatus is the state of a loan application
type LoanStatus string

const (
	LoanSubmitted   LoanStatus = "submitted"
	LoanUnderReview LoanStatus = "under_review"
	LoanApproved    LoanStatus = "approved"
	LoanRejected    LoanStatus = "rejected"
	LoanIssued      LoanStatus = "issued"
	LoanInUse       LoanStatus = "in_use"
	LoanReturned    LoanStatus = "returned"
	LoanCompleted   LoanStatus = "completed"
	LoanCancelled   LoanStatus = "cancelled"
)

// AllLoanStatuses lists every loan status in workflow order
var AllLoanStatuses = []LoanStatus{
	LoanSubmitted, LoanUnderReview, LoanApproved, LoanRejected,
	LoanIssued, LoanInUse, LoanReturned, LoanCompleted, LoanCancelled,
}

// ExtensionStatus is the state of a loan extension request
type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// Priority is shared by loan applications and helpdesk tickets
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IsOverdue is true iff the loan is in use and its end date has passed
func IsOverdue(status LoanStatus, loanEnd, now time.Time) bool {
	return status == LoanInUse && now.After(loanEnd)
}

// ============================================================
// Owner
// ============================================================

// Owner identifies who a loan application belongs to.
// It is either AuthenticatedOwner or GuestOwner.
type Owner interface {
	isOwner()
	Kind() string
}

// AuthenticatedOwner is a signed-in ministry employee
type AuthenticatedOwner struct {
	UserID uint
}

// GuestOwner is an applicant without an account
type GuestOwner struct {
	Name     string
	Email    string
	Phone    string
	Division string
}

func (AuthenticatedOwner) isOwner() {}
func (GuestOwner) isOwner()         {}

func (AuthenticatedOwner) Kind() string { return "authenticated" }
func (GuestOwner) Kind() string         { return "guest" }

// Validate checks the required guest fields
func (g GuestOwner) Validate() error {
	switch {
	case strings.TrimSpace(g.Name) == "":
		return NewValidationError("applicant_name", "is required for guest applications")
	case strings.TrimSpace(g.Email) == "":
		return NewValidationError("applicant_email", "is required for guest applications")
	case !looksLikeEmail(g.Email):
		return NewValidationError("applicant_email", "must be a valid email address")
	case strings.TrimSpace(g.Phone) == "":
		return NewValidationError("applicant_phone", "is required for guest applications")
	case strings.TrimSpace(g.Division) == "":
		return NewValidationError("applicant_division", "is required for guest applications")
	}
	return nil
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// Actor is whoever invokes a workflow operation
type Actor struct {
	UserID uint
	Role   Role
	Label  string
	IP     string
}

// IsAnonymous reports whether the actor carries no user identity
func (a Actor) IsAnonymous() bool {
	return a.UserID == 0
}

// ============================================================
// Dates
// ============================================================

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
