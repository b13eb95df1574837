package services

import (
	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/messaging"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/clock"
)

// Deps is the infrastructure the services are built from
type Deps struct {
	Repos     *repositories.Repos
	Config    *config.Config
	SLA       domain.SLATable
	Clock     clock.Clock
	Publisher messaging.Publisher
	Cache     cache.Store
}

// Services groups every application service
type Services struct {
	Auth      *AuthService
	Users     *UserService
	Ledger    *AssetLedger
	Loans     *LoanService
	Tickets   *TicketService
	Dashboard *DashboardService
	Notify    *NotificationService
	Sweep     *SweepService
}

// NewServices wires the services together
func NewServices(d Deps) *Services {
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}

	notify := NewNotificationService(d.Publisher)
	dashboard := NewDashboardService(d.Repos, d.Cache, d.Config.Workflow.DashboardCacheTTL, clk)
	ledger := NewAssetLedger(d.Repos)
	tickets := NewTicketService(d.Repos, d.SLA, clk, notify, dashboard)
	loans := NewLoanService(d.Repos, ledger, tickets, clk, notify, dashboard)

	return &Services{
		Auth:      NewAuthService(d.Repos.User, d.Config),
		Users:     NewUserService(d.Repos.User),
		Ledger:    ledger,
		Loans:     loans,
		Tickets:   tickets,
		Dashboard: dashboard,
		Notify:    notify,
		Sweep:     NewSweepService(tickets, loans, notify, d.Config.Workflow.SweepSchedule),
	}
}
