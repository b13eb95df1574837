package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/clock"
)

const dashboardSummaryKey = "dashboard:summary"

// DashboardService handles dashboard operations
type DashboardService struct {
	repos *repositories.Repos
	cache cache.Store
	ttl   time.Duration
	clock clock.Clock
}

// NewDashboardService creates a new dashboard service. A nil store
// disables caching.
func NewDashboardService(repos *repositories.Repos, store cache.Store, ttl time.Duration, clk clock.Clock) *DashboardService {
	return &DashboardService{repos: repos, cache: store, ttl: ttl, clock: clk}
}

// AssetSummary represents inventory statistics
type AssetSummary struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	Utilization float64          `json:"utilization"`
}

// LoanSummary represents loan statistics
type LoanSummary struct {
	ByStatus map[string]int64 `json:"by_status"`
	Pending  int64            `json:"pending"`
	Active   int64            `json:"active"`
	Overdue  int64            `json:"overdue"`
}

// TicketSummary represents helpdesk statistics
type TicketSummary struct {
	ByStatus map[string]int64 `json:"by_status"`
	Open     int64            `json:"open"`
	Breached int64            `json:"breached"`
}

// DashboardSummary represents dashboard data
type DashboardSummary struct {
	Assets      AssetSummary  `json:"assets"`
	Loans       LoanSummary   `json:"loans"`
	Tickets     TicketSummary `json:"tickets"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Summary returns the dashboard summary, served from cache when fresh
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		b, err := s.cache.Get(ctx, dashboardSummaryKey)
		switch {
		case err == nil:
			var cached DashboardSummary
			if json.Unmarshal(b, &cached) == nil {
				return &cached, nil
			}
		case !errors.Is(err, cache.ErrMiss):
			log.Printf("⚠️ Dashboard cache read failed: %v", err)
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if b, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, dashboardSummaryKey, b, s.ttl); err != nil {
				log.Printf("⚠️ Dashboard cache write failed: %v", err)
			}
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardSummaryKey); err != nil {
		log.Printf("⚠️ Dashboard cache invalidation failed: %v", err)
	}
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardSummary, error) {
	now := s.clock.Now()
	summary := &DashboardSummary{GeneratedAt: now}

	// Assets
	assetCounts, err := s.repos.Asset.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary.Assets.ByStatus = assetCounts
	for _, n := range assetCounts {
		summary.Assets.Total += n
	}
	if summary.Assets.Total > 0 {
		summary.Assets.Utilization = float64(assetCounts[string(domain.AssetLoaned)]) / float64(summary.Assets.Total)
	}

	// Loans
	loanCounts, err := s.repos.Loan.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary.Loans.ByStatus = loanCounts
	summary.Loans.Pending = loanCounts[string(domain.LoanSubmitted)] + loanCounts[string(domain.LoanUnderReview)]
	summary.Loans.Active = loanCounts[string(domain.LoanIssued)] + loanCounts[string(domain.LoanInUse)]

	inUse, _, err := s.repos.Loan.List(ctx, repositories.LoanFilter{
		Statuses: []string{string(domain.LoanInUse)},
	})
	if err != nil {
		return nil, err
	}
	for _, app := range inUse {
		if app.IsOverdue(now) {
			summary.Loans.Overdue++
		}
	}

	// Tickets
	ticketCounts, err := s.repos.Ticket.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary.Tickets.ByStatus = ticketCounts

	open, err := s.repos.Ticket.ListAll(ctx, repositories.TicketFilter{
		ExcludeStatuses: []string{
			string(domain.TicketResolved),
			string(domain.TicketClosed),
			string(domain.TicketCancelled),
		},
	})
	if err != nil {
		return nil, err
	}
	summary.Tickets.Open = int64(len(open))
	for _, t := range open {
		if t.IsBreached(now) {
			summary.Tickets.Breached++
		}
	}

	return summary, nil
}
