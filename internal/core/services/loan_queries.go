package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"

	"gorm.io/gorm"
)

// ListParams controls paging and ordering of loan listings
type ListParams struct {
	Sort   string
	Desc   bool
	Offset int
	Limit  int
}

func (p ListParams) filter(statuses ...domain.LoanStatus) (repositories.LoanFilter, error) {
	if p.Sort != "" && !repositories.IsLoanSortKey(p.Sort) {
		return repositories.LoanFilter{}, domain.NewValidationError("sort", "must be one of created_at, loan_start_date, loan_end_date, application_number")
	}
	f := repositories.LoanFilter{
		SortBy: p.Sort,
		Desc:   p.Desc,
		Offset: p.Offset,
		Limit:  p.Limit,
	}
	for _, st := range statuses {
		f.Statuses = append(f.Statuses, string(st))
	}
	return f, nil
}

// GetByID gets an application with its items and extensions
func (s *LoanService) GetByID(ctx context.Context, id uint) (*models.LoanApplication, error) {
	return s.load(ctx, s.repos, id)
}

// GetForActor gets an application the actor is allowed to see
func (s *LoanService) GetForActor(ctx context.Context, id uint, actor domain.Actor) (*models.LoanApplication, error) {
	app, err := s.load(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(app, actor); err != nil {
		return nil, err
	}
	return app, nil
}

// ListPending lists applications waiting for a decision, oldest first
func (s *LoanService) ListPending(ctx context.Context, params ListParams) ([]*models.LoanApplication, int64, error) {
	f, err := params.filter(domain.LoanSubmitted, domain.LoanUnderReview)
	if err != nil {
		return nil, 0, err
	}
	return s.repos.Loan.List(ctx, f)
}

// ListActive lists issued and in-use loans
func (s *LoanService) ListActive(ctx context.Context, params ListParams) ([]*models.LoanApplication, int64, error) {
	f, err := params.filter(domain.LoanIssued, domain.LoanInUse)
	if err != nil {
		return nil, 0, err
	}
	return s.repos.Loan.List(ctx, f)
}

// ListMine lists the applications owned by a user
func (s *LoanService) ListMine(ctx context.Context, userID uint, params ListParams) ([]*models.LoanApplication, int64, error) {
	f, err := params.filter()
	if err != nil {
		return nil, 0, err
	}
	f.UserID = &userID
	return s.repos.Loan.List(ctx, f)
}

// ListOverdue lists in-use loans whose end date has passed, earliest due first.
// Overdue is derived from the clock and never stored.
func (s *LoanService) ListOverdue(ctx context.Context) ([]*models.LoanApplication, error) {
	apps, _, err := s.repos.Loan.List(ctx, repositories.LoanFilter{
		Statuses: []string{string(domain.LoanInUse)},
		SortBy:   "loan_end_date",
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	overdue := make([]*models.LoanApplication, 0, len(apps))
	for _, app := range apps {
		if app.IsOverdue(now) {
			overdue = append(overdue, app)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].LoanEndDate.Before(overdue[j].LoanEndDate)
	})
	return overdue, nil
}

// Track lets a guest look up their application by number and email.
// A mismatch is reported as not found.
func (s *LoanService) Track(ctx context.Context, number, email string) (*models.LoanApplication, error) {
	number = strings.TrimSpace(number)
	email = strings.TrimSpace(email)
	if number == "" {
		return nil, domain.NewValidationError("application_number", "is required")
	}
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}

	app, err := s.repos.Loan.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("loan application", number)
		}
		return nil, err
	}
	if app.GuestEmail == nil || !strings.EqualFold(*app.GuestEmail, email) {
		return nil, domain.NewNotFoundError("loan application", number)
	}
	return app, nil
}

// History returns the audit trail of an application, newest first
func (s *LoanService) History(ctx context.Context, id uint) ([]*models.AuditLog, error) {
	if _, err := s.load(ctx, s.repos, id); err != nil {
		return nil, err
	}
	return s.repos.Audit.ListByEntity(ctx, models.AuditEntityLoan, id)
}

// Now exposes the service clock for derived read fields
func (s *LoanService) Now() time.Time {
	return s.clock.Now()
}

// OverdueLoan is one entry of an overdue report
type OverdueLoan struct {
	ApplicationID     uint      `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	ApplicantName     string    `json:"applicant_name"`
	ApplicantEmail    string    `json:"applicant_email"`
	LoanEndDate       time.Time `json:"loan_end_date"`
	DaysOverdue       int       `json:"days_overdue"`
}

// OverdueReport is the result of one overdue evaluation
type OverdueReport struct {
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Overdue     []OverdueLoan `json:"overdue"`
}

// EvaluateOverdue summarizes the loans that are currently overdue
func (s *LoanService) EvaluateOverdue(ctx context.Context) (*OverdueReport, error) {
	apps, err := s.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	report := &OverdueReport{EvaluatedAt: now, Overdue: []OverdueLoan{}}
	for _, app := range apps {
		days := int(domain.DateOnly(now).Sub(domain.DateOnly(app.LoanEndDate)).Hours() / 24)
		report.Overdue = append(report.Overdue, OverdueLoan{
			ApplicationID:     app.ID,
			ApplicationNumber: app.ApplicationNumber,
			ApplicantName:     app.ApplicantName,
			ApplicantEmail:    app.ApplicantEmail,
			LoanEndDate:       app.LoanEndDate,
			DaysOverdue:       days,
		})
	}
	return report, nil
}
