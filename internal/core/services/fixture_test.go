package services_test

import (
	"context"
	"testing"
	"time"

	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/messaging"
	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/adapters/persistence/testutil"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/clock"

	"github.com/stretchr/testify/require"
)

// t0 is a Monday morning; loans submitted at t0 may start on the 13th
var t0 = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	repos *repositories.Repos
	clock *clock.FakeClock
	svc   *services.Services

	staff    domain.Actor
	approver domain.Actor
	employee domain.Actor
}

func newFixture(t *testing.T, pub messaging.Publisher) *fixture {
	t.Helper()

	repos := repositories.NewRepositories(testutil.NewDB(t))
	clk := clock.Fake(t0)
	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "test-secret", AccessTokenMins: 15},
		Workflow: config.WorkflowConfig{DashboardCacheTTL: time.Minute},
	}

	f := &fixture{
		ctx:   context.Background(),
		repos: repos,
		clock: clk,
		svc: services.NewServices(services.Deps{
			Repos:     repos,
			Config:    cfg,
			SLA:       domain.DefaultSLATable(),
			Clock:     clk,
			Publisher: pub,
			Cache:     cache.NewMemoryStore(),
		}),
	}
	f.staff = f.user(t, "staff1", domain.RoleStaff)
	f.approver = f.user(t, "approver1", domain.RoleApprover)
	f.employee = f.user(t, "employee1", domain.RoleUser)
	return f
}

func (f *fixture) user(t *testing.T, username string, role domain.Role) domain.Actor {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@ministry.go.th",
		Password: "x",
		Role:     string(role),
		FullName: "Test " + username,
		Division: "IT",
		IsActive: true,
	}
	require.NoError(t, f.repos.User.Create(f.ctx, u))
	return domain.Actor{UserID: u.ID, Role: role, Label: u.FullName}
}

func (f *fixture) asset(t *testing.T, tag string) *models.Asset {
	t.Helper()
	a, err := f.svc.Ledger.Register(f.ctx, &services.RegisterAssetInput{
		Tag:          tag,
		Name:         "Laptop " + tag,
		Category:     "laptop",
		CurrentValue: 25000,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) assetStatus(t *testing.T, id uint) string {
	t.Helper()
	a, err := f.svc.Ledger.GetByID(f.ctx, id)
	require.NoError(t, err)
	return a.Status
}

func (f *fixture) submit(t *testing.T, assets ...*models.Asset) *models.LoanApplication {
	t.Helper()
	items := make([]services.LoanItemInput, len(assets))
	for i, a := range assets {
		id := a.ID
		items[i] = services.LoanItemInput{AssetID: &id, Quantity: 1}
	}
	app, err := f.svc.Loans.Submit(f.ctx, &services.SubmitLoanInput{
		Owner:         domain.AuthenticatedOwner{UserID: f.employee.UserID},
		Purpose:       "Field survey",
		LoanStartDate: t0.AddDate(0, 0, 1),
		LoanEndDate:   t0.AddDate(0, 0, 5),
		Items:         items,
	}, f.employee)
	require.NoError(t, err)
	return app
}

// approved submits and approves an application for the given assets
func (f *fixture) approved(t *testing.T, assets ...*models.Asset) *models.LoanApplication {
	t.Helper()
	app := f.submit(t, assets...)
	app, err := f.svc.Loans.Approve(f.ctx, app.ID, "ok", f.approver)
	require.NoError(t, err)
	return app
}

// inUse takes an application through approval, issuance and collection
func (f *fixture) inUse(t *testing.T, assets ...*models.Asset) *models.LoanApplication {
	t.Helper()
	app := f.approved(t, assets...)
	_, err := f.svc.Loans.Issue(f.ctx, app.ID, nil, f.staff)
	require.NoError(t, err)
	app, err = f.svc.Loans.MarkCollected(f.ctx, app.ID, f.staff)
	require.NoError(t, err)
	return app
}

func goodReturns(app *models.LoanApplication) []services.ReturnItemInput {
	out := make([]services.ReturnItemInput, len(app.Items))
	for i, it := range app.Items {
		out[i] = services.ReturnItemInput{ItemID: it.ID, ConditionAfter: "good"}
	}
	return out
}
