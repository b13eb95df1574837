package models

import (
	"time"

	"ministry-assetloan/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Users
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'USER'" json:"role"`
	FullName  string         `gorm:"size:150" json:"full_name"`
	Phone     string         `gorm:"size:30" json:"phone"`
	Division  string         `gorm:"size:150" json:"division"`
	Position  string         `gorm:"size:100" json:"position"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Division  string    `json:"division,omitempty"`
	Position  string    `json:"position,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Division:  u.Division,
		Position:  u.Position,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// ============================================================
// Asset Ledger
// ============================================================

// Asset represents assets table
type Asset struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Tag          string         `gorm:"uniqueIndex;size:50;not null" json:"tag"`
	Name         string         `gorm:"size:150;not null" json:"name"`
	Category     string         `gorm:"size:50;index" json:"category"`
	Condition    string         `gorm:"size:20;default:'good'" json:"condition"`
	CurrentValue float64        `gorm:"type:decimal(12,2);default:0" json:"current_value"`
	Status       string         `gorm:"size:20;default:'available';index" json:"status"`
	Notes        string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Asset) TableName() string {
	return "assets"
}

// ============================================================
// Loan Applications
// ============================================================

// LoanApplication represents loan_applications table
type LoanApplication struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	ApplicationNumber string `gorm:"uniqueIndex;size:30;not null" json:"application_number"`

	// Ownership: exactly one of UserID / GuestEmail is set
	UserID     *uint   `gorm:"index" json:"user_id,omitempty"`
	GuestEmail *string `gorm:"size:100;index" json:"guest_email,omitempty"`

	ApplicantName     string `gorm:"size:150;not null" json:"applicant_name"`
	ApplicantEmail    string `gorm:"size:100" json:"applicant_email"`
	ApplicantPhone    string `gorm:"size:30" json:"applicant_phone"`
	ApplicantDivision string `gorm:"size:150" json:"applicant_division"`

	Purpose       string    `gorm:"type:text" json:"purpose"`
	Location      string    `gorm:"size:255" json:"location"`
	LoanStartDate time.Time `gorm:"not null" json:"loan_start_date"`
	LoanEndDate   time.Time `gorm:"not null;index" json:"loan_end_date"`
	Status        string    `gorm:"size:20;not null;default:'submitted';index" json:"status"`
	Priority      string    `gorm:"size:20;default:'medium'" json:"priority"`

	ApprovedBy      *uint      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovalRemarks string     `gorm:"type:text" json:"approval_remarks,omitempty"`

	RejectedBy      *uint      `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	IssuedBy    *uint      `json:"issued_by,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	CollectedAt *time.Time `json:"collected_at,omitempty"`
	ReturnedBy  *uint      `json:"returned_by,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items      []LoanItem      `gorm:"foreignKey:LoanApplicationID" json:"items,omitempty"`
	Extensions []LoanExtension `gorm:"foreignKey:LoanApplicationID" json:"extensions,omitempty"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

// Owner returns the ownership variant of the application
func (a *LoanApplication) Owner() domain.Owner {
	if a.UserID != nil {
		return domain.AuthenticatedOwner{UserID: *a.UserID}
	}
	g := domain.GuestOwner{
		Name:     a.ApplicantName,
		Phone:    a.ApplicantPhone,
		Division: a.ApplicantDivision,
	}
	if a.GuestEmail != nil {
		g.Email = *a.GuestEmail
	}
	return g
}

// OwnedBy reports whether userID owns the application
func (a *LoanApplication) OwnedBy(userID uint) bool {
	return a.UserID != nil && *a.UserID == userID
}

// IsOverdue reports whether the application is in use past its end date
func (a *LoanApplication) IsOverdue(now time.Time) bool {
	return domain.IsOverdue(domain.LoanStatus(a.Status), a.LoanEndDate, now)
}

// LoanItem represents loan_items table
type LoanItem struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	LoanApplicationID uint    `gorm:"not null;index" json:"loan_application_id"`
	Position          int     `gorm:"not null;default:0" json:"position"`
	AssetID           *uint   `gorm:"index" json:"asset_id,omitempty"`
	Asset             *Asset  `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Description       string  `gorm:"size:255" json:"description,omitempty"`
	Quantity          int     `gorm:"not null;default:1" json:"quantity"`
	UnitValue         float64 `gorm:"type:decimal(12,2);default:0" json:"unit_value"`
	TotalValue        float64 `gorm:"type:decimal(12,2);default:0" json:"total_value"`
	ConditionBefore   *string `gorm:"size:20" json:"condition_before,omitempty"`
	ConditionAfter    *string `gorm:"size:20" json:"condition_after,omitempty"`
	DamageReport      *string `gorm:"type:text" json:"damage_report,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LoanItem) TableName() string {
	return "loan_items"
}

// LoanExtension represents loan_extensions table
type LoanExtension struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	LoanApplicationID uint       `gorm:"not null;index" json:"loan_application_id"`
	PreviousEndDate   time.Time  `gorm:"not null" json:"previous_end_date"`
	RequestedEndDate  time.Time  `gorm:"not null" json:"requested_end_date"`
	Reason            string     `gorm:"type:text" json:"reason"`
	Status            string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RequestedBy       *uint      `json:"requested_by,omitempty"`
	DecidedBy         *uint      `json:"decided_by,omitempty"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`
	DecisionNote      string     `gorm:"type:text" json:"decision_note,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LoanExtension) TableName() string {
	return "loan_extensions"
}

// ============================================================
// Helpdesk
// ============================================================

// HelpdeskTicket represents helpdesk_tickets table
type HelpdeskTicket struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TicketNumber       string     `gorm:"uniqueIndex;size:30;not null" json:"ticket_number"`
	Subject            string     `gorm:"size:255;not null" json:"subject"`
	Description        string     `gorm:"type:text" json:"description"`
	Category           string     `gorm:"size:30;not null;index" json:"category"`
	Priority           string     `gorm:"size:20;not null" json:"priority"`
	Status             string     `gorm:"size:20;not null;default:'open';index" json:"status"`
	SLAResolutionDueAt time.Time  `gorm:"column:sla_resolution_due_at;not null;index" json:"sla_resolution_due_at"`
	SLAExtendedCount   int        `gorm:"column:sla_extended_count;default:0" json:"sla_extended_count"`
	RequesterID        *uint      `gorm:"index" json:"requester_id,omitempty"`
	AssignedTo         *uint      `gorm:"index" json:"assigned_to,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote     string     `gorm:"type:text" json:"resolution_note,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	OriginatingAssetID *uint      `gorm:"index" json:"originating_asset_id,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (HelpdeskTicket) TableName() string {
	return "helpdesk_tickets"
}

// IsBreached reports whether the ticket's SLA deadline has passed unresolved
func (t *HelpdeskTicket) IsBreached(now time.Time) bool {
	return domain.IsBreached(domain.TicketStatus(t.Status), t.SLAResolutionDueAt, now)
}

// ============================================================
// Audit
// ============================================================

// AuditLog is the history of state changes
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"size:30;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint      `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action     string    `gorm:"size:30;not null" json:"action"`
	FromStatus string    `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus   string    `gorm:"size:20" json:"to_status,omitempty"`
	OldValues  string    `gorm:"type:text" json:"old_values,omitempty"`
	NewValues  string    `gorm:"type:text" json:"new_values,omitempty"`
	ActorID    *uint     `gorm:"index" json:"actor_id,omitempty"`
	ActorLabel string    `gorm:"size:150" json:"actor_label,omitempty"`
	IPAddress  string    `gorm:"size:50" json:"ip_address,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit entity types
const (
	AuditEntityLoan   = "loan_application"
	AuditEntityTicket = "helpdesk_ticket"
	AuditEntityAsset  = "asset"
)

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Asset{},
		&LoanApplication{},
		&LoanItem{},
		&LoanExtension{},
		&HelpdeskTicket{},
		&AuditLog{},
	)
}
