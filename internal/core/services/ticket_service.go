package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/clock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketService runs the helpdesk ticket lifecycle and SLA tracking
type TicketService struct {
	repos   *repositories.Repos
	sla     domain.SLATable
	clock   clock.Clock
	notify  *NotificationService
	summary SummaryInvalidator
}

// NewTicketService creates a new ticket service
func NewTicketService(
	repos *repositories.Repos,
	sla domain.SLATable,
	clk clock.Clock,
	notify *NotificationService,
	summary SummaryInvalidator,
) *TicketService {
	if sla == nil {
		sla = domain.DefaultSLATable()
	}
	if summary == nil {
		summary = noopInvalidator{}
	}
	return &TicketService{
		repos:   repos,
		sla:     sla,
		clock:   clk,
		notify:  notify,
		summary: summary,
	}
}

// CreateTicketInput represents create ticket input
type CreateTicketInput struct {
	Subject            string `json:"subject"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Priority           string `json:"priority"`
	OriginatingAssetID *uint  `json:"originating_asset_id,omitempty"`
}

// Create opens a ticket and starts its SLA clock
func (s *TicketService) Create(ctx context.Context, input *CreateTicketInput, actor domain.Actor) (*models.HelpdeskTicket, error) {
	now := s.clock.Now()
	ticket, err := s.newTicket(input, now)
	if err != nil {
		return nil, err
	}
	if !actor.IsAnonymous() {
		id := actor.UserID
		ticket.RequesterID = &id
	}

	box := &outbox{}
	err = s.repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		if input.OriginatingAssetID != nil {
			if _, err := tx.Asset.GetByID(ctx, *input.OriginatingAssetID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.NewNotFoundError("asset", *input.OriginatingAssetID)
				}
				return err
			}
		}
		if err := tx.Ticket.Create(ctx, ticket); err != nil {
			return err
		}
		box.add(EventTicketCreated, newTicketEvent(ticket, actor.UserID, now))
		return writeAudit(ctx, tx, box, actor, now, auditChange{
			entityType: models.AuditEntityTicket,
			entityID:   ticket.ID,
			action:     "create",
			to:         ticket.Status,
			newValues:  ticket,
		})
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, box)
	return ticket, nil
}

// DamageTicketRequest asks the helpdesk to look at an asset returned damaged
type DamageTicketRequest struct {
	AssetID      *uint
	AssetTag     string
	Condition    string
	DamageReport string
	Reference    string
}

// openFromDamage creates a maintenance ticket inside the caller's transaction.
// The caller publishes box after commit.
func (s *TicketService) openFromDamage(ctx context.Context, tx *repositories.Repos, box *outbox, actor domain.Actor, now time.Time, req DamageTicketRequest) (*models.HelpdeskTicket, error) {
	subject := "Damaged equipment returned"
	if req.AssetTag != "" {
		subject = "Damaged asset returned: " + req.AssetTag
	}
	description := strings.TrimSpace(req.DamageReport)
	if req.Condition != "" {
		description += "\n\nCondition on return: " + req.Condition
	}
	if req.Reference != "" {
		description += "\nReference: " + req.Reference
	}

	ticket, err := s.newTicket(&CreateTicketInput{
		Subject:            subject,
		Description:        description,
		Category:           string(domain.CategoryMaintenance),
		Priority:           string(domain.PriorityHigh),
		OriginatingAssetID: req.AssetID,
	}, now)
	if err != nil {
		return nil, err
	}
	if !actor.IsAnonymous() {
		id := actor.UserID
		ticket.RequesterID = &id
	}

	if err := tx.Ticket.Create(ctx, ticket); err != nil {
		return nil, err
	}

	ev := newTicketEvent(ticket, actor.UserID, now)
	ev.SourceReference = req.Reference
	box.add(EventTicketFromDamage, ev)

	err = writeAudit(ctx, tx, box, actor, now, auditChange{
		entityType: models.AuditEntityTicket,
		entityID:   ticket.ID,
		action:     "create_from_damage",
		to:         ticket.Status,
		newValues:  ticket,
	})
	return ticket, err
}

func (s *TicketService) newTicket(input *CreateTicketInput, now time.Time) (*models.HelpdeskTicket, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, domain.NewValidationError("subject", "is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, domain.NewValidationError("description", "is required")
	}
	category := domain.TicketCategory(input.Category)
	if category == "" {
		category = domain.CategoryGeneral
	}
	if !category.Valid() {
		return nil, domain.NewValidationError("category", "must be one of hardware, software, network, maintenance, general")
	}
	priority := domain.Priority(input.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}
	window, ok := s.sla.Window(priority)
	if !ok {
		return nil, domain.NewValidationError("priority", "must be one of low, medium, high, critical")
	}

	return &models.HelpdeskTicket{
		TicketNumber:       newReference("HD", now),
		Subject:            strings.TrimSpace(input.Subject),
		Description:        strings.TrimSpace(input.Description),
		Category:           string(category),
		Priority:           string(priority),
		Status:             string(domain.TicketOpen),
		SLAResolutionDueAt: now.Add(window),
		OriginatingAssetID: input.OriginatingAssetID,
	}, nil
}

// Assign gives the ticket to a staff member. Re-assigning is allowed.
func (s *TicketService) Assign(ctx context.Context, id, staffID uint, actor domain.Actor) (*models.HelpdeskTicket, error) {
	staff, err := s.repos.User.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user", staffID)
		}
		return nil, err
	}
	if !staff.IsActive || !domain.Role(staff.Role).IsStaff() {
		return nil, domain.NewValidationError("assigned_to", "must be an active staff member")
	}

	return s.transition(ctx, id, domain.OpAssign, actor, EventTicketAssigned, func(now time.Time) map[string]interface{} {
		return map[string]interface{}{"assigned_to": staffID, "assigned_at": now}
	})
}

// Start marks work as begun
func (s *TicketService) Start(ctx context.Context, id uint, actor domain.Actor) (*models.HelpdeskTicket, error) {
	return s.transition(ctx, id, domain.OpStartWork, actor, EventTicketStarted, nil)
}

// Resolve records the fix. SLA tracking stops here.
func (s *TicketService) Resolve(ctx context.Context, id uint, note string, actor domain.Actor) (*models.HelpdeskTicket, error) {
	return s.transition(ctx, id, domain.OpResolve, actor, EventTicketResolved, func(now time.Time) map[string]interface{} {
		return map[string]interface{}{"resolved_at": now, "resolution_note": strings.TrimSpace(note)}
	})
}

// Close closes a resolved ticket
func (s *TicketService) Close(ctx context.Context, id uint, actor domain.Actor) (*models.HelpdeskTicket, error) {
	return s.transition(ctx, id, domain.OpClose, actor, EventTicketClosed, func(now time.Time) map[string]interface{} {
		return map[string]interface{}{"closed_at": now}
	})
}

// Cancel withdraws a ticket that has not been closed
func (s *TicketService) Cancel(ctx context.Context, id uint, reason string, actor domain.Actor) (*models.HelpdeskTicket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	return s.transition(ctx, id, domain.OpCancelTkt, actor, EventTicketCancelled, func(now time.Time) map[string]interface{} {
		return map[string]interface{}{"closed_at": now, "resolution_note": strings.TrimSpace(reason)}
	})
}

// ExtendSLA pushes the resolution deadline back. This is the only change
// ever made to sla_resolution_due_at after creation.
func (s *TicketService) ExtendSLA(ctx context.Context, id uint, by time.Duration, reason string, actor domain.Actor) (*models.HelpdeskTicket, error) {
	if by <= 0 {
		return nil, domain.NewValidationError("extend_by", "must be a positive duration")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	now := s.clock.Now()
	box := &outbox{}
	var updated *models.HelpdeskTicket
	err := s.repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		ticket, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := domain.NextTicketStatus(domain.TicketStatus(ticket.Status), domain.OpExtendSLA); err != nil {
			return err
		}

		newDue := ticket.SLAResolutionDueAt.Add(by)
		ok, err := tx.Ticket.ExtendSLA(ctx, id, ticket.Status, newDue)
		if err != nil {
			return err
		}
		if !ok {
			return s.staleTransition(ctx, tx, id, domain.OpExtendSLA)
		}

		if updated, err = tx.Ticket.GetByID(ctx, id); err != nil {
			return err
		}
		box.add(EventTicketSLAExtended, newTicketEvent(updated, actor.UserID, now))
		return writeAudit(ctx, tx, box, actor, now, auditChange{
			entityType: models.AuditEntityTicket,
			entityID:   id,
			action:     string(domain.OpExtendSLA),
			from:       ticket.Status,
			to:         updated.Status,
			oldValues:  map[string]interface{}{"sla_resolution_due_at": ticket.SLAResolutionDueAt},
			newValues:  map[string]interface{}{"sla_resolution_due_at": newDue, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, box)
	return updated, nil
}

func (s *TicketService) transition(
	ctx context.Context,
	id uint,
	op domain.TicketOperation,
	actor domain.Actor,
	eventKey string,
	fields func(now time.Time) map[string]interface{},
) (*models.HelpdeskTicket, error) {
	now := s.clock.Now()
	box := &outbox{}
	var updated *models.HelpdeskTicket

	err := s.repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		ticket, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		to, err := domain.NextTicketStatus(domain.TicketStatus(ticket.Status), op)
		if err != nil {
			return err
		}

		var extra map[string]interface{}
		if fields != nil {
			extra = fields(now)
		}
		ok, err := tx.Ticket.CompareAndSetStatus(ctx, id, ticket.Status, string(to), extra)
		if err != nil {
			return err
		}
		if !ok {
			return s.staleTransition(ctx, tx, id, op)
		}

		if updated, err = tx.Ticket.GetByID(ctx, id); err != nil {
			return err
		}
		box.add(eventKey, newTicketEvent(updated, actor.UserID, now))
		return writeAudit(ctx, tx, box, actor, now, auditChange{
			entityType: models.AuditEntityTicket,
			entityID:   id,
			action:     string(op),
			from:       ticket.Status,
			to:         string(to),
			newValues:  extra,
		})
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, box)
	return updated, nil
}

// staleTransition builds the error for a compare-and-set that lost a race
func (s *TicketService) staleTransition(ctx context.Context, tx *repositories.Repos, id uint, op domain.TicketOperation) error {
	current, err := s.load(ctx, tx, id)
	if err != nil {
		return err
	}
	return domain.NewTransitionError("helpdesk ticket", current.Status, string(op))
}

func (s *TicketService) load(ctx context.Context, tx *repositories.Repos, id uint) (*models.HelpdeskTicket, error) {
	ticket, err := tx.Ticket.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("helpdesk ticket", id)
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) after(ctx context.Context, box *outbox) {
	s.notify.dispatch(ctx, box)
	s.summary.Invalidate(ctx)
}

// GetByID gets a ticket
func (s *TicketService) GetByID(ctx context.Context, id uint) (*models.HelpdeskTicket, error) {
	return s.load(ctx, s.repos, id)
}

// List lists tickets, oldest first
func (s *TicketService) List(ctx context.Context, filter repositories.TicketFilter, offset, limit int) ([]*models.HelpdeskTicket, int64, error) {
	return s.repos.Ticket.List(ctx, filter, offset, limit)
}

// Now exposes the service clock for derived read fields
func (s *TicketService) Now() time.Time {
	return s.clock.Now()
}

// ============================================================
// SLA breach evaluation
// ============================================================

// BreachedTicket is one entry of a breach report
type BreachedTicket struct {
	TicketID           uint      `json:"ticket_id"`
	TicketNumber       string    `json:"ticket_number"`
	Subject            string    `json:"subject"`
	Category           string    `json:"category"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	AssignedTo         *uint     `json:"assigned_to,omitempty"`
	SLAResolutionDueAt time.Time `json:"sla_resolution_due_at"`
	MinutesOverdue     int64     `json:"minutes_overdue"`
}

// BreachReport is the result of one breach evaluation
type BreachReport struct {
	EvaluatedAt time.Time        `json:"evaluated_at"`
	OpenTickets int              `json:"open_tickets"`
	Breached    []BreachedTicket `json:"breached"`
}

// EvaluateBreaches computes which unresolved tickets are past their SLA
// deadline. It only reads the ticket store.
func (s *TicketService) EvaluateBreaches(ctx context.Context) (*BreachReport, error) {
	now := s.clock.Now()
	tickets, err := s.repos.Ticket.ListAll(ctx, repositories.TicketFilter{
		ExcludeStatuses: []string{
			string(domain.TicketResolved),
			string(domain.TicketClosed),
			string(domain.TicketCancelled),
		},
	})
	if err != nil {
		return nil, err
	}

	report := &BreachReport{
		EvaluatedAt: now,
		OpenTickets: len(tickets),
		Breached:    []BreachedTicket{},
	}
	for _, t := range tickets {
		if !t.IsBreached(now) {
			continue
		}
		report.Breached = append(report.Breached, BreachedTicket{
			TicketID:           t.ID,
			TicketNumber:       t.TicketNumber,
			Subject:            t.Subject,
			Category:           t.Category,
			Priority:           t.Priority,
			Status:             t.Status,
			AssignedTo:         t.AssignedTo,
			SLAResolutionDueAt: t.SLAResolutionDueAt,
			MinutesOverdue:     int64(now.Sub(t.SLAResolutionDueAt) / time.Minute),
		})
	}
	return report, nil
}

// newReference builds a human-readable number such as HD-20260115-3F9A0C21
func newReference(prefix string, now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), id[:8])
}
