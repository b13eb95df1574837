package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Summary(t *testing.T) {
	f := newFixture(t, nil)
	a, b := f.asset(t, "NB-001"), f.asset(t, "NB-002")
	f.asset(t, "NB-003")
	f.asset(t, "NB-004")

	f.inUse(t, a, b)
	f.submit(t, f.asset(t, "NB-005"))
	_, err := f.svc.Tickets.Create(f.ctx, newTicketInput("critical"), f.employee)
	require.NoError(t, err)

	// both the loan end date and the ticket deadline are in the past
	f.clock.Advance(7 * 24 * time.Hour)

	sum, err := f.svc.Dashboard.Summary(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), sum.Assets.Total)
	assert.Equal(t, int64(2), sum.Assets.ByStatus["loaned"])
	assert.InDelta(t, 0.4, sum.Assets.Utilization, 1e-9)

	assert.Equal(t, int64(1), sum.Loans.Pending)
	assert.Equal(t, int64(1), sum.Loans.Active)
	assert.Equal(t, int64(1), sum.Loans.Overdue)

	assert.Equal(t, int64(1), sum.Tickets.Open)
	assert.Equal(t, int64(1), sum.Tickets.Breached)
}

func TestDashboardService_CacheIsInvalidatedByWrites(t *testing.T) {
	f := newFixture(t, nil)
	a := f.asset(t, "NB-001")

	first, err := f.svc.Dashboard.Summary(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, first.Loans.Pending)

	// assets are registered outside the workflow, so the cached copy stays
	f.asset(t, "NB-002")
	cached, err := f.svc.Dashboard.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Assets.Total, cached.Assets.Total)
	assert.True(t, first.GeneratedAt.Equal(cached.GeneratedAt))

	// a submission drops it
	f.submit(t, a)
	fresh, err := f.svc.Dashboard.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Loans.Pending)
	assert.Equal(t, int64(2), fresh.Assets.Total)
}
