package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/core/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanService_HappyPath(t *testing.T) {
	f := newFixture(t, nil)
	a := f.asset(t, "NB-001")

	app := f.submit(t, a)
	assert.Equal(t, "submitted", app.Status)
	assert.Regexp(t, `^LA-20260112-[0-9A-F]{8}$`, app.ApplicationNumber)
	require.Len(t, app.Items, 1)
	assert.Equal(t, 25000.0, app.Items[0].UnitValue)
	assert.Equal(t, 25000.0, app.Items[0].TotalValue)
	assert.Equal(t, "Test employee1", app.ApplicantName)

	app, err := f.svc.Loans.Approve(f.ctx, app.ID, "approved for survey", f.approver)
	require.NoError(t, err)
	assert.Equal(t, "approved", app.Status)
	require.NotNil(t, app.ApprovedBy)
	assert.Equal(t, f.approver.UserID, *app.ApprovedBy)
	assert.Equal(t, "available", f.assetStatus(t, a.ID), "approval does not reserve")

	app, err = f.svc.Loans.Issue(f.ctx, app.ID, nil, f.staff)
	require.NoError(t, err)
	assert.Equal(t, "issued", app.Status)
	assert.Equal(t, "loaned", f.assetStatus(t, a.ID))
	require.NotNil(t, app.Items[0].ConditionBefore)
	assert.Equal(t, "good", *app.Items[0].ConditionBefore)

	app, err = f.svc.Loans.MarkCollected(f.ctx, app.ID, f.staff)
	require.NoError(t, err)
	assert.Equal(t, "in_use", app.Status)

	res, err := f.svc.Loans.ProcessReturn(f.ctx, app.ID, goodReturns(app), f.staff)
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Application.Status)
	assert.Empty(t, res.Tickets)
	assert.Equal(t, "available", f.assetStatus(t, a.ID))

	tickets, total, err := f.svc.Tickets.List(f.ctx, repositories.TicketFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, tickets)

	history, err := f.svc.Loans.History(f.ctx, app.ID)
	require.NoError(t, err)
	actions := make([]string, len(history))
	for i, h := range history {
		actions[i] = h.Action
	}
	// newest first
	assert.Equal(t, []string{"complete", "return", "mark_collected", "issue", "approve", "submit"}, actions)
}

func TestLoanService_IssueRollsBackWhenAnyAssetUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	assets := []*models.Asset{f.asset(t, "NB-001"), f.asset(t, "NB-002"), f.asset(t, "NB-003")}

	// NB-003 goes out on another loan first
	other := f.approved(t, assets[2])
	_, err := f.svc.Loans.Issue(f.ctx, other.ID, nil, f.staff)
	require.NoError(t, err)

	app := f.approved(t, assets...)
	_, err = f.svc.Loans.Issue(f.ctx, app.ID, nil, f.staff)

	var unavailable *domain.AssetUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, assets[2].ID, unavailable.AssetID)
	assert.Equal(t, "NB-003", unavailable.Tag)

	assert.Equal(t, "available", f.assetStatus(t, assets[0].ID))
	assert.Equal(t, "available", f.assetStatus(t, assets[1].ID))
	assert.Equal(t, "loaned", f.assetStatus(t, assets[2].ID))

	got, err := f.svc.Loans.GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)
}

// The test database serializes transactions, so this checks the outcome
// contract only. Lock ordering is covered by TestReserveAll_AscendingAssetOrder.
func TestLoanService_ConcurrentIssueOfSameAsset(t *testing.T) {
	f := newFixture(t, nil)
	b := f.asset(t, "NB-B")

	first := f.approved(t, b)
	second := f.approved(t, b)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = f.svc.Loans.Issue(f.ctx, id, nil, f.staff)
		}(i, id)
	}
	wg.Wait()

	var succeeded, failed int
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)

		loser := []uint{first.ID, second.ID}[i]
		got, gerr := f.svc.Loans.GetByID(f.ctx, loser)
		require.NoError(t, gerr)
		assert.Equal(t, "approved", got.Status)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "loaned", f.assetStatus(t, b.ID))
}

func TestLoanService_DamagedReturnOpensTicket(t *testing.T) {
	f := newFixture(t, nil)
	a := f.asset(t, "NB-001")
	app := f.inUse(t, a)

	res, err := f.svc.Loans.ProcessReturn(f.ctx, app.ID, []services.ReturnItemInput{{
		ItemID:         app.Items[0].ID,
		ConditionAfter: "fair",
		DamageReport:   "cracked screen hinge",
	}}, f.staff)
	require.NoError(t, err)

	assert.Equal(t, "completed", res.Application.Status)
	assert.Equal(t, "maintenance", f.assetStatus(t, a.ID))

	require.Len(t, res.Tickets, 1)
	ticket := res.Tickets[0]
	require.NotNil(t, ticket.OriginatingAssetID)
	assert.Equal(t, a.ID, *ticket.OriginatingAssetID)
	assert.Equal(t, "maintenance", ticket.Category)
	assert.Equal(t, "high", ticket.Priority)
	assert.Equal(t, "open", ticket.Status)
	assert.True(t, t0.Add(8*time.Hour).Equal(ticket.SLAResolutionDueAt))
	assert.Contains(t, ticket.Description, "cracked screen hinge")

	assetID := a.ID
	_, total, err := f.svc.Tickets.List(f.ctx, repositories.TicketFilter{OriginatingAssetID: &assetID}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NotNil(t, res.Application.Items[0].DamageReport)
	assert.Equal(t, "cracked screen hinge", *res.Application.Items[0].DamageReport)
}

func TestLoanService_ReturnRequiresEveryItem(t *testing.T) {
	f := newFixture(t, nil)
	a, b := f.asset(t, "NB-001"), f.asset(t, "NB-002")
	app := f.inUse(t, a, b)

	_, err := f.svc.Loans.ProcessReturn(f.ctx, app.ID, goodReturns(app)[:1], f.staff)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)
	assert.Equal(t, "loaned", f.assetStatus(t, a.ID))
	assert.Equal(t, "loaned", f.assetStatus(t, b.ID))
}

func TestLoanService_InvalidTransitions(t *testing.T) {
	f := newFixture(t, nil)
	a := f.asset(t, "NB-001")
	app := f.submit(t, a)

	// submitted -> issued is not an edge
	_, err := f.svc.Loans.Issue(f.ctx, app.ID, nil, f.staff)
	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "submitted", terr.From)
	assert.Equal(t, "issue", terr.Op)
	assert.Equal(t, "available", f.assetStatus(t, a.ID))

	_, err = f.svc.Loans.MarkCollected(f.ctx, app.ID, f.staff)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Loans.ProcessReturn(f.ctx, app.ID, goodReturns(app), f.staff)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Loans.Reject(f.ctx, app.ID, "no budget", f.approver)
	require.NoError(t, err)

	// rejected is terminal
	_, err = f.svc.Loans.Approve(f.ctx, app.ID, "", f.approver)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Loans.Cancel(f.ctx, app.ID, "changed mind", f.employee)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestLoanService_StartReviewThenApprove(t *testing.T) {
	f := newFixture(t, nil)
	app := f.submit(t, f.asset(t, "NB-001"))

	app, err := f.svc.Loans.StartReview(f.ctx, app.ID, f.approver)
	require.NoError(t, err)
	assert.Equal(t, "under_review", app.Status)

	pending, total, err := f.svc.Loans.ListPending(f.ctx, services.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, app.ID, pending[0].ID)

	app, err = f.svc.Loans.Approve(f.ctx, app.ID, "", f.approver)
	require.NoError(t, err)
	assert.Equal(t, "approved", app.Status)
}

func TestLoanService_ApproveRequiresApprover(t *testing.T) {
	f := newFixture(t, nil)
	app := f.submit(t, f.asset(t, "NB-001"))

	_, err := f.svc.Loans.Approve(f.ctx, app.ID, "", domain.Actor{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoanService_SubmitValidation(t *testing.T) {
	f := newFixture(t, nil)
	a := f.asset(t, "NB-001")
	retired := f.asset(t, "NB-OLD")
	require.NoError(t, f.svc.Ledger.Retire(f.ctx, retired.ID))

	id := a.ID
	retiredID := retired.ID
	missing := uint(9999)
	guest := domain.GuestOwner{Name: "Somchai", Email: "somchai@example.org", Phone: "0812345678", Division: "Planning"}

	base := func() *services.SubmitLoanInput {
		return &services.SubmitLoanInput{
			Owner:         guest,
			LoanStartDate: t0.AddDate(0, 0, 1),
			LoanEndDate:   t0.AddDate(0, 0, 3),
			Items:         []services.LoanItemInput{{AssetID: &id, Quantity: 1}},
		}
	}

	tests := []struct {
		name   string
		mutate func(in *services.SubmitLoanInput)
		field  string
	}{
		{"start today", func(in *services.SubmitLoanInput) { in.LoanStartDate = t0 }, "loan_start_date"},
		{"end before start", func(in *services.SubmitLoanInput) { in.LoanEndDate = in.LoanStartDate }, "loan_end_date"},
		{"no items", func(in *services.SubmitLoanInput) { in.Items = nil }, "items"},
		{"tracked quantity", func(in *services.SubmitLoanInput) { in.Items[0].Quantity = 2 }, "items[0].quantity"},
		{"duplicate asset", func(in *services.SubmitLoanInput) {
			in.Items = append(in.Items, services.LoanItemInput{AssetID: &id, Quantity: 1})
		}, "items[1].asset_id"},
		{"retired asset", func(in *services.SubmitLoanInput) { in.Items[0].AssetID = &retiredID }, "items[0].asset_id"},
		{"untracked without description", func(in *services.SubmitLoanInput) {
			in.Items = []services.LoanItemInput{{Quantity: 3}}
		}, "items[0].description"},
		{"bad priority", func(in *services.SubmitLoanInput) { in.Priority = "urgent" }, "priority"},
		{"guest email", func(in *services.SubmitLoanInput) {
			g := guest
			g.Email = "not-an-email"
			in.Owner = g
		}, "applicant_email"},
		{"guest division", func(in *services.SubmitLoanInput) {
			g := guest
			g.Division = ""
			in.Owner = g
		}, "applicant_division"},
		{"no owner", func(in *services.SubmitLoanInput) { in.Owner = nil }, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(in)
			_, err := f.svc.Loans.Submit(f.ctx, in, domain.Actor{})

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("unknown asset", func(t *testing.T) {
		in := base()
		in.Items[0].AssetID = &missing
		_, err := f.svc.Loans.Submit(f.ctx, in, domain.Actor{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLoanService_GuestSubmitAndTrack(t *testing.T) {
	f := newFixture(t, nil)
	id := f.asset(t, "NB-001").ID

	app, err := f.svc.Loans.Submit(f.ctx, &services.SubmitLoanInput{
		Owner: domain.GuestOwner{
			Name: "Somchai", Email: "Somchai@Example.org", Phone: "0812345678", Division: "Planning",
		},
		LoanStartDate: t0.AddDate(0, 0, 2),
		LoanEndDate:   t0.AddDate(0, 0, 4),
		Items: []services.LoanItemInput{
			{AssetID: &id},
			{Description: "HDMI cable", Quantity: 3, UnitValue: floatPtr(150)},
		},
	}, domain.Actor{Label: "guest"})
	require.NoError(t, err)

	assert.Equal(t, "guest", app.Owner().Kind())
	require.NotNil(t, app.GuestEmail)
	assert.Equal(t, "somchai@example.org", *app.GuestEmail)
	assert.Equal(t, "medium", app.Priority)
	require.Len(t, app.Items, 2)
	assert.Equal(t, 1, app.Items[0].Quantity)
	assert.Equal(t, 450.0, app.Items[1].TotalValue)

	got, err := f.svc.Loans.Track(f.ctx, app.ApplicationNumber, "SOMCHAI@example.org")
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	_, err = f.svc.Loans.Track(f.ctx, app.ApplicationNumber, "someone@else.org")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoanService_CancelOwnership(t *testing.T) {
	f := newFixture(t, nil)
	app := f.submit(t, f.asset(t, "NB-001"))
	stranger := f.user(t, "stranger", domain.RoleUser)

	_, err := f.svc.Loans.Cancel(f.ctx, app.ID, "", stranger)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	app, err = f.svc.Loans.Cancel(f.ctx, app.ID, "no longer needed", f.employee)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", app.Status)
	assert.Equal(t, "no longer needed", app.CancellationReason)

	// staff may cancel approved applications on anyone's behalf
	other := f.approved(t, f.asset(t, "NB-002"))
	other, err = f.svc.Loans.Cancel(f.ctx, other.ID, "asset recalled", f.staff)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", other.Status)
}

func TestLoanService_Extension(t *testing.T) {
	f := newFixture(t, nil)
	app := f.inUse(t, f.asset(t, "NB-001"))
	originalEnd := app.LoanEndDate

	_, err := f.svc.Loans.RequestExtension(f.ctx, app.ID, &services.RequestExtensionInput{
		NewEndDate: originalEnd, Reason: "survey delayed",
	}, f.employee)
	assert.ErrorIs(t, err, domain.ErrValidation)

	newEnd := originalEnd.AddDate(0, 0, 7)
	app, err = f.svc.Loans.RequestExtension(f.ctx, app.ID, &services.RequestExtensionInput{
		NewEndDate: newEnd, Reason: "survey delayed",
	}, f.employee)
	require.NoError(t, err)
	assert.Equal(t, "in_use", app.Status)
	require.Len(t, app.Extensions, 1)
	assert.Equal(t, "pending", app.Extensions[0].Status)

	_, err = f.svc.Loans.RequestExtension(f.ctx, app.ID, &services.RequestExtensionInput{
		NewEndDate: newEnd.AddDate(0, 0, 1), Reason: "again",
	}, f.employee)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "extension", verr.Field)

	app, err = f.svc.Loans.ApproveExtension(f.ctx, app.ID, "fine", f.approver)
	require.NoError(t, err)
	assert.Equal(t, "in_use", app.Status)
	assert.True(t, newEnd.Equal(app.LoanEndDate))
	assert.Equal(t, "approved", app.Extensions[0].Status)

	_, err = f.svc.Loans.RejectExtension(f.ctx, app.ID, "", f.approver)
	assert.ErrorIs(t, err, domain.ErrValidation, "nothing pending")
}

func TestLoanService_ExtensionRejectedKeepsEndDate(t *testing.T) {
	f := newFixture(t, nil)
	app := f.inUse(t, f.asset(t, "NB-001"))
	originalEnd := app.LoanEndDate

	_, err := f.svc.Loans.RequestExtension(f.ctx, app.ID, &services.RequestExtensionInput{
		NewEndDate: originalEnd.AddDate(0, 0, 3), Reason: "more time",
	}, f.employee)
	require.NoError(t, err)

	app, err = f.svc.Loans.RejectExtension(f.ctx, app.ID, "asset booked", f.approver)
	require.NoError(t, err)
	assert.True(t, originalEnd.Equal(app.LoanEndDate))
	assert.Equal(t, "rejected", app.Extensions[0].Status)
	assert.Equal(t, "asset booked", app.Extensions[0].DecisionNote)
}

func TestLoanService_OverdueIsDerived(t *testing.T) {
	f := newFixture(t, nil)
	app := f.inUse(t, f.asset(t, "NB-001"))

	overdue, err := f.svc.Loans.ListOverdue(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	// end date is midnight of the 17th
	f.clock.Set(app.LoanEndDate.AddDate(0, 0, 2).Add(10 * time.Hour))

	overdue, err = f.svc.Loans.ListOverdue(f.ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.True(t, overdue[0].ToResponse(f.clock.Now()).Overdue)

	report, err := f.svc.Loans.EvaluateOverdue(f.ctx)
	require.NoError(t, err)
	require.Len(t, report.Overdue, 1)
	assert.Equal(t, 2, report.Overdue[0].DaysOverdue)

	res, err := f.svc.Loans.ProcessReturn(f.ctx, app.ID, goodReturns(app), f.staff)
	require.NoError(t, err)
	assert.False(t, res.Application.IsOverdue(f.clock.Now()))

	overdue, err = f.svc.Loans.ListOverdue(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestLoanService_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Loans.Approve(f.ctx, 404, "", f.approver)

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "loan application", nf.Entity)
}

func TestLoanService_ListSortValidation(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.Loans.ListActive(f.ctx, services.ListParams{Sort: "password"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// backdate rewrites timestamps that the workflow sets from the wall clock
func (f *fixture) backdate(t *testing.T, id uint, createdAt, endDate time.Time) {
	t.Helper()
	require.NoError(t, f.repos.DB().Model(&models.LoanApplication{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"created_at": createdAt, "loan_end_date": endDate}).Error)
}

func ids(apps []*models.LoanApplication) []uint {
	out := make([]uint, len(apps))
	for i, a := range apps {
		out[i] = a.ID
	}
	return out
}

func TestLoanService_ListingsAreOldestFirst(t *testing.T) {
	f := newFixture(t, nil)

	first := f.submit(t, f.asset(t, "NB-001"))
	second := f.submit(t, f.asset(t, "NB-002"))
	third := f.submit(t, f.asset(t, "NB-003"))

	// creation order deliberately differs from id order
	f.backdate(t, first.ID, t0.Add(-1*time.Hour), t0.AddDate(0, 0, 9))
	f.backdate(t, second.ID, t0.Add(-3*time.Hour), t0.AddDate(0, 0, 3))
	f.backdate(t, third.ID, t0.Add(-2*time.Hour), t0.AddDate(0, 0, 6))

	pending, total, err := f.svc.Loans.ListPending(f.ctx, services.ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []uint{second.ID, third.ID, first.ID}, ids(pending))

	pending, _, err = f.svc.Loans.ListPending(f.ctx, services.ListParams{Sort: "loan_end_date", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, third.ID, second.ID}, ids(pending))

	for _, app := range []*models.LoanApplication{first, second, third} {
		_, err := f.svc.Loans.Approve(f.ctx, app.ID, "ok", f.approver)
		require.NoError(t, err)
		_, err = f.svc.Loans.Issue(f.ctx, app.ID, nil, f.staff)
		require.NoError(t, err)
	}

	active, _, err := f.svc.Loans.ListActive(f.ctx, services.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID, third.ID, first.ID}, ids(active))

	active, _, err = f.svc.Loans.ListActive(f.ctx, services.ListParams{Sort: "loan_end_date", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, third.ID, second.ID}, ids(active))
}

func floatPtr(v float64) *float64 { return &v }
