package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepOptions selects what a sweep evaluates
type SweepOptions struct {
	Breaches bool
	Overdue  bool
	Publish  bool
}

// SweepReport is the outcome of one sweep
type SweepReport struct {
	Breaches *BreachReport  `json:"breaches,omitempty"`
	Overdue  *OverdueReport `json:"overdue,omitempty"`
}

// SweepService periodically evaluates SLA breaches and overdue loans and
// publishes the reports. It never changes ticket or loan state.
type SweepService struct {
	tickets  *TicketService
	loans    *LoanService
	notify   *NotificationService
	schedule string
	cron     *cron.Cron
}

// NewSweepService creates a new sweep service
func NewSweepService(tickets *TicketService, loans *LoanService, notify *NotificationService, schedule string) *SweepService {
	return &SweepService{
		tickets:  tickets,
		loans:    loans,
		notify:   notify,
		schedule: schedule,
	}
}

// Sweep runs one evaluation
func (s *SweepService) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	report := &SweepReport{}

	if opts.Breaches {
		breaches, err := s.tickets.EvaluateBreaches(ctx)
		if err != nil {
			return nil, err
		}
		report.Breaches = breaches
		if opts.Publish && len(breaches.Breached) > 0 {
			s.notify.Publish(ctx, EventReportSLABreaches, breaches)
		}
	}

	if opts.Overdue {
		overdue, err := s.loans.EvaluateOverdue(ctx)
		if err != nil {
			return nil, err
		}
		report.Overdue = overdue
		if opts.Publish && len(overdue.Overdue) > 0 {
			s.notify.Publish(ctx, EventReportOverdueLoans, overdue)
		}
	}

	return report, nil
}

// Start schedules the sweep. An empty schedule disables it.
func (s *SweepService) Start() error {
	if s.schedule == "" {
		log.Println("⚠️ Sweep schedule empty, background sweep disabled")
		return nil
	}

	s.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := s.cron.AddFunc(s.schedule, s.runScheduled)
	if err != nil {
		return err
	}
	s.cron.Start()

	log.Printf("🚀 Sweep scheduled: %s", s.schedule)
	return nil
}

// Stop waits for a running sweep and stops the scheduler
func (s *SweepService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Println("🛑 Sweep stopped")
}

func (s *SweepService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.Sweep(ctx, SweepOptions{Breaches: true, Overdue: true, Publish: true})
	if err != nil {
		log.Printf("❌ Sweep failed: %v", err)
		return
	}
	log.Printf("✅ Sweep done: %d breached tickets, %d overdue loans",
		len(report.Breaches.Breached), len(report.Overdue.Overdue))
}
