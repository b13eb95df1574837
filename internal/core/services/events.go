package services

import (
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
)

// Routing keys for outbound events
const (
	EventLoanSubmitted          = "loan.submitted"
	EventLoanReviewStarted      = "loan.review_started"
	EventLoanApproved           = "loan.approved"
	EventLoanRejected           = "loan.rejected"
	EventLoanIssued             = "loan.issued"
	EventLoanCollected          = "loan.collected"
	EventLoanReturned           = "loan.returned"
	EventLoanCancelled          = "loan.cancelled"
	EventLoanExtensionRequested = "loan.extension_requested"
	EventLoanExtensionDecided   = "loan.extension_decided"
	EventTicketCreated          = "ticket.created"
	EventTicketFromDamage       = "ticket.created_from_damage"
	EventTicketAssigned         = "ticket.assigned"
	EventTicketStarted          = "ticket.started"
	EventTicketResolved         = "ticket.resolved"
	EventTicketClosed           = "ticket.closed"
	EventTicketCancelled        = "ticket.cancelled"
	EventTicketSLAExtended      = "ticket.sla_extended"
	EventAuditEntry             = "audit.entry"
	EventReportSLABreaches      = "report.sla_breaches"
	EventReportOverdueLoans     = "report.overdue_loans"
)

// LoanEvent is the payload of every loan.* event
type LoanEvent struct {
	ApplicationID     uint      `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	Status            string    `json:"status"`
	ApplicantName     string    `json:"applicant_name"`
	ApplicantEmail    string    `json:"applicant_email"`
	LoanStartDate     time.Time `json:"loan_start_date"`
	LoanEndDate       time.Time `json:"loan_end_date"`
	Remarks           string    `json:"remarks,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	ActorID           uint      `json:"actor_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func newLoanEvent(app *models.LoanApplication, actorID uint, at time.Time) LoanEvent {
	return LoanEvent{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		Status:            app.Status,
		ApplicantName:     app.ApplicantName,
		ApplicantEmail:    app.ApplicantEmail,
		LoanStartDate:     app.LoanStartDate,
		LoanEndDate:       app.LoanEndDate,
		ActorID:           actorID,
		OccurredAt:        at,
	}
}

// TicketEvent is the payload of every ticket.* event
type TicketEvent struct {
	TicketID           uint      `json:"ticket_id"`
	TicketNumber       string    `json:"ticket_number"`
	Subject            string    `json:"subject"`
	Category           string    `json:"category"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	SLAResolutionDueAt time.Time `json:"sla_resolution_due_at"`
	AssignedTo         *uint     `json:"assigned_to,omitempty"`
	OriginatingAssetID *uint     `json:"originating_asset_id,omitempty"`
	SourceReference    string    `json:"source_reference,omitempty"`
	ActorID            uint      `json:"actor_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func newTicketEvent(t *models.HelpdeskTicket, actorID uint, at time.Time) TicketEvent {
	return TicketEvent{
		TicketID:           t.ID,
		TicketNumber:       t.TicketNumber,
		Subject:            t.Subject,
		Category:           t.Category,
		Priority:           t.Priority,
		Status:             t.Status,
		SLAResolutionDueAt: t.SLAResolutionDueAt,
		AssignedTo:         t.AssignedTo,
		OriginatingAssetID: t.OriginatingAssetID,
		ActorID:            actorID,
		OccurredAt:         at,
	}
}

// outboundEvent is an event held until its transaction commits
type outboundEvent struct {
	routingKey string
	payload    any
}

// outbox collects events raised inside a transaction
type outbox struct {
	events []outboundEvent
}

func (o *outbox) add(routingKey string, payload any) {
	o.events = append(o.events, outboundEvent{routingKey: routingKey, payload: payload})
}

// audit records an audit entry to publish after commit
func (o *outbox) audit(entry *models.AuditLog) {
	o.add(EventAuditEntry, entry)
}
