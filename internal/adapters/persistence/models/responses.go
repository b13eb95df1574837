package models

import (
	"time"

	"ministry-assetloan/internal/core/domain"
)

// OwnerResponse DTO
type OwnerResponse struct {
	Type   string  `json:"type"`
	UserID *uint   `json:"user_id,omitempty"`
	Email  *string `json:"email,omitempty"`
}

// LoanApplicationResponse DTO
type LoanApplicationResponse struct {
	ID                uint               `json:"id"`
	ApplicationNumber string             `json:"application_number"`
	Owner             OwnerResponse      `json:"owner"`
	ApplicantName     string             `json:"applicant_name"`
	ApplicantEmail    string             `json:"applicant_email"`
	ApplicantPhone    string             `json:"applicant_phone"`
	ApplicantDivision string             `json:"applicant_division"`
	Purpose           string             `json:"purpose"`
	Location          string             `json:"location"`
	LoanStartDate     time.Time          `json:"loan_start_date"`
	LoanEndDate       time.Time          `json:"loan_end_date"`
	Status            string             `json:"status"`
	Priority          string             `json:"priority"`
	Overdue           bool               `json:"overdue"`
	ApprovedBy        *uint              `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time         `json:"approved_at,omitempty"`
	ApprovalRemarks   string             `json:"approval_remarks,omitempty"`
	RejectionReason   *string            `json:"rejection_reason,omitempty"`
	IssuedAt          *time.Time         `json:"issued_at,omitempty"`
	CollectedAt       *time.Time         `json:"collected_at,omitempty"`
	ReturnedAt        *time.Time         `json:"returned_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	Items             []LoanItemResponse `json:"items"`
	Extensions        []LoanExtension    `json:"extensions,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// LoanItemResponse DTO
type LoanItemResponse struct {
	ID              uint    `json:"id"`
	AssetID         *uint   `json:"asset_id,omitempty"`
	AssetTag        string  `json:"asset_tag,omitempty"`
	AssetName       string  `json:"asset_name,omitempty"`
	Description     string  `json:"description,omitempty"`
	Quantity        int     `json:"quantity"`
	UnitValue       float64 `json:"unit_value"`
	TotalValue      float64 `json:"total_value"`
	ConditionBefore *string `json:"condition_before,omitempty"`
	ConditionAfter  *string `json:"condition_after,omitempty"`
	DamageReport    *string `json:"damage_report,omitempty"`
}

// ToResponse converts the application using now for derived fields
func (a *LoanApplication) ToResponse(now time.Time) *LoanApplicationResponse {
	owner := OwnerResponse{Type: a.Owner().Kind()}
	if a.UserID != nil {
		owner.UserID = a.UserID
	} else {
		owner.Email = a.GuestEmail
	}

	items := make([]LoanItemResponse, 0, len(a.Items))
	for _, it := range a.Items {
		ir := LoanItemResponse{
			ID:              it.ID,
			AssetID:         it.AssetID,
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitValue:       it.UnitValue,
			TotalValue:      it.TotalValue,
			ConditionBefore: it.ConditionBefore,
			ConditionAfter:  it.ConditionAfter,
			DamageReport:    it.DamageReport,
		}
		if it.Asset != nil {
			ir.AssetTag = it.Asset.Tag
			ir.AssetName = it.Asset.Name
		}
		items = append(items, ir)
	}

	return &LoanApplicationResponse{
		ID:                a.ID,
		ApplicationNumber: a.ApplicationNumber,
		Owner:             owner,
		ApplicantName:     a.ApplicantName,
		ApplicantEmail:    a.ApplicantEmail,
		ApplicantPhone:    a.ApplicantPhone,
		ApplicantDivision: a.ApplicantDivision,
		Purpose:           a.Purpose,
		Location:          a.Location,
		LoanStartDate:     a.LoanStartDate,
		LoanEndDate:       a.LoanEndDate,
		Status:            a.Status,
		Priority:          a.Priority,
		Overdue:           a.IsOverdue(now),
		ApprovedBy:        a.ApprovedBy,
		ApprovedAt:        a.ApprovedAt,
		ApprovalRemarks:   a.ApprovalRemarks,
		RejectionReason:   a.RejectionReason,
		IssuedAt:          a.IssuedAt,
		CollectedAt:       a.CollectedAt,
		ReturnedAt:        a.ReturnedAt,
		CompletedAt:       a.CompletedAt,
		CancelledAt:       a.CancelledAt,
		Items:             items,
		Extensions:        a.Extensions,
		CreatedAt:         a.CreatedAt,
	}
}

// TicketResponse DTO
type TicketResponse struct {
	HelpdeskTicket
	Breached bool `json:"breached"`
}

// ToResponse converts the ticket using now for derived fields
func (t *HelpdeskTicket) ToResponse(now time.Time) *TicketResponse {
	return &TicketResponse{
		HelpdeskTicket: *t,
		Breached:       t.IsBreached(now),
	}
}

// AssetResponse DTO
type AssetResponse struct {
	Asset
	Loanable bool `json:"loanable"`
}

func (a *Asset) ToResponse() *AssetResponse {
	return &AssetResponse{
		Asset:    *a,
		Loanable: a.Status == string(domain.AssetAvailable),
	}
}
