package services_test

import (
	"context"
	"testing"
	"time"

	"ministry-assetloan/internal/adapters/messaging/mock"
	"ministry-assetloan/internal/core/services"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepService_ReportsWithoutPublishing(t *testing.T) {
	f := newFixture(t, nil)
	f.inUse(t, f.asset(t, "NB-001"))
	_, err := f.svc.Tickets.Create(f.ctx, newTicketInput("high"), f.employee)
	require.NoError(t, err)

	report, err := f.svc.Sweep.Sweep(f.ctx, services.SweepOptions{Breaches: true, Overdue: true})
	require.NoError(t, err)
	assert.Empty(t, report.Breaches.Breached)
	assert.Empty(t, report.Overdue.Overdue)

	f.clock.Advance(10 * 24 * time.Hour)

	report, err = f.svc.Sweep.Sweep(f.ctx, services.SweepOptions{Overdue: true})
	require.NoError(t, err)
	assert.Nil(t, report.Breaches)
	require.Len(t, report.Overdue.Overdue, 1)
}

func TestSweepService_PublishesNonEmptyReports(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mock.NewMockPublisher(ctrl)

	var published []string
	pub.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, key string, _ interface{}) { published = append(published, key) }).
		Return(nil).
		AnyTimes()

	f := newFixture(t, pub)
	_, err := f.svc.Tickets.Create(f.ctx, newTicketInput("critical"), f.employee)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Hour)

	published = nil
	_, err = f.svc.Sweep.Sweep(f.ctx, services.SweepOptions{Breaches: true, Overdue: true, Publish: true})
	require.NoError(t, err)

	// no loan is overdue, so only the breach report goes out
	assert.Equal(t, []string{services.EventReportSLABreaches}, published)
}

func TestSweepService_StartStop(t *testing.T) {
	disabled := services.NewSweepService(nil, nil, nil, "")
	require.NoError(t, disabled.Start())
	disabled.Stop()

	bad := services.NewSweepService(nil, nil, nil, "not a schedule")
	assert.Error(t, bad.Start())

	sweeper := services.NewSweepService(nil, nil, nil, "*/15 * * * *")
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
