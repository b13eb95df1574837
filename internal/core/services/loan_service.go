package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/clock"

	"gorm.io/gorm"
)

// LoanService runs the loan application workflow and coordinates asset
// reservation through the AssetLedger
type LoanService struct {
	repos   *repositories.Repos
	ledger  *AssetLedger
	tickets *TicketService
	clock   clock.Clock
	notify  *NotificationService
	summary SummaryInvalidator
}

// NewLoanService creates a new loan service
func NewLoanService(
	repos *repositories.Repos,
	ledger *AssetLedger,
	tickets *TicketService,
	clk clock.Clock,
	notify *NotificationService,
	summary SummaryInvalidator,
) *LoanService {
	if summary == nil {
		summary = noopInvalidator{}
	}
	return &LoanService{
		repos:   repos,
		ledger:  ledger,
		tickets: tickets,
		clock:   clk,
		notify:  notify,
		summary: summary,
	}
}

// loanTx carries one workflow operation through its transaction
type loanTx struct {
	ctx   context.Context
	tx    *repositories.Repos
	app   *models.LoanApplication
	box   *outbox
	actor domain.Actor
	now   time.Time
}

// mutate loads the application inside a transaction, runs fn and, once
// committed, publishes the collected events
func (s *LoanService) mutate(ctx context.Context, id uint, actor domain.Actor, fn func(w *loanTx) error) (*models.LoanApplication, error) {
	now := s.clock.Now()
	box := &outbox{}
	var result *models.LoanApplication

	err := s.repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		app, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		w := &loanTx{ctx: ctx, tx: tx, app: app, box: box, actor: actor, now: now}
		if err := fn(w); err != nil {
			return err
		}
		result, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify.dispatch(ctx, box)
	s.summary.Invalidate(ctx)
	return result, nil
}

// step applies one edge of the loan state graph with a compare-and-set on
// the current status, then writes the audit entry
func (s *LoanService) step(w *loanTx, op domain.LoanOperation, fields map[string]interface{}, oldValues any) error {
	from := w.app.Status
	to, err := domain.NextLoanStatus(domain.LoanStatus(from), op)
	if err != nil {
		return err
	}

	ok, err := w.tx.Loan.CompareAndSetStatus(w.ctx, w.app.ID, from, string(to), fields)
	if err != nil {
		return err
	}
	if !ok {
		current, err := w.tx.Loan.CurrentStatus(w.ctx, w.app.ID)
		if err != nil {
			return err
		}
		return domain.NewTransitionError("loan application", current, string(op))
	}
	w.app.Status = string(to)

	return writeAudit(w.ctx, w.tx, w.box, w.actor, w.now, auditChange{
		entityType: models.AuditEntityLoan,
		entityID:   w.app.ID,
		action:     string(op),
		from:       from,
		to:         string(to),
		oldValues:  oldValues,
		newValues:  fields,
	})
}

func (s *LoanService) load(ctx context.Context, repos *repositories.Repos, id uint) (*models.LoanApplication, error) {
	app, err := repos.Loan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("loan application", id)
		}
		return nil, err
	}
	return app, nil
}

// authorizeOwner lets staff act on any application and employees only on their own
func authorizeOwner(app *models.LoanApplication, actor domain.Actor) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if actor.IsAnonymous() || !app.OwnedBy(actor.UserID) {
		return domain.ErrForbidden
	}
	return nil
}

func (w *loanTx) event(routingKey string, mutate func(ev *LoanEvent)) {
	ev := newLoanEvent(w.app, w.actor.UserID, w.now)
	if mutate != nil {
		mutate(&ev)
	}
	w.box.add(routingKey, ev)
}

func requireTransition(app *models.LoanApplication, op domain.LoanOperation) error {
	_, err := domain.NextLoanStatus(domain.LoanStatus(app.Status), op)
	return err
}

// ============================================================
// Submit
// ============================================================

// LoanItemInput is one requested line of a loan application
type LoanItemInput struct {
	AssetID     *uint    `json:"asset_id,omitempty"`
	Description string   `json:"description,omitempty"`
	Quantity    int      `json:"quantity"`
	UnitValue   *float64 `json:"unit_value,omitempty"`
}

// SubmitLoanInput represents a new loan application
type SubmitLoanInput struct {
	Owner         domain.Owner
	Purpose       string
	Location      string
	LoanStartDate time.Time
	LoanEndDate   time.Time
	Priority      string
	Items         []LoanItemInput
}

// Submit validates and records a new application in submitted status
func (s *LoanService) Submit(ctx context.Context, input *SubmitLoanInput, actor domain.Actor) (*models.LoanApplication, error) {
	now := s.clock.Now()

	app := &models.LoanApplication{
		Purpose:  strings.TrimSpace(input.Purpose),
		Location: strings.TrimSpace(input.Location),
		Status:   string(domain.LoanSubmitted),
	}
	if err := s.applyOwner(ctx, app, input.Owner); err != nil {
		return nil, err
	}

	start := domain.DateOnly(input.LoanStartDate.UTC())
	end := domain.DateOnly(input.LoanEndDate.UTC())
	tomorrow := domain.DateOnly(now.UTC()).AddDate(0, 0, 1)
	if input.LoanStartDate.IsZero() {
		return nil, domain.NewValidationError("loan_start_date", "is required")
	}
	if input.LoanEndDate.IsZero() {
		return nil, domain.NewValidationError("loan_end_date", "is required")
	}
	if start.Before(tomorrow) {
		return nil, domain.NewValidationError("loan_start_date", "must be tomorrow or later")
	}
	if !end.After(start) {
		return nil, domain.NewValidationError("loan_end_date", "must be after loan_start_date")
	}
	app.LoanStartDate = start
	app.LoanEndDate = end

	priority := domain.Priority(input.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, domain.NewValidationError("priority", "must be one of low, medium, high, critical")
	}
	app.Priority = string(priority)

	items, err := s.buildItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	app.Items = items
	app.ApplicationNumber = newReference("LA", now)

	box := &outbox{}
	err = s.repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		if err := tx.Loan.Create(ctx, app); err != nil {
			return err
		}
		box.add(EventLoanSubmitted, newLoanEvent(app, actor.UserID, now))
		return writeAudit(ctx, tx, box, actor, now, auditChange{
			entityType: models.AuditEntityLoan,
			entityID:   app.ID,
			action:     "submit",
			to:         app.Status,
			newValues:  app,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.dispatch(ctx, box)
	s.summary.Invalidate(ctx)
	return s.load(ctx, s.repos, app.ID)
}

// applyOwner fills ownership and applicant data. Authenticated applicants
// are taken from their profile; guests supply everything themselves.
func (s *LoanService) applyOwner(ctx context.Context, app *models.LoanApplication, owner domain.Owner) error {
	switch o := owner.(type) {
	case domain.AuthenticatedOwner:
		user, err := s.repos.User.GetByID(ctx, o.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("user", o.UserID)
			}
			return err
		}
		if !user.IsActive {
			return domain.NewValidationError("owner", "account is inactive")
		}
		uid := user.ID
		app.UserID = &uid
		app.ApplicantName = user.FullName
		if app.ApplicantName == "" {
			app.ApplicantName = user.Username
		}
		app.ApplicantEmail = user.Email
		app.ApplicantPhone = user.Phone
		app.ApplicantDivision = user.Division

	case domain.GuestOwner:
		if err := o.Validate(); err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(o.Email))
		app.GuestEmail = &email
		app.ApplicantName = strings.TrimSpace(o.Name)
		app.ApplicantEmail = email
		app.ApplicantPhone = strings.TrimSpace(o.Phone)
		app.ApplicantDivision = strings.TrimSpace(o.Division)

	default:
		return domain.NewValidationError("owner", "is required")
	}
	return nil
}

func (s *LoanService) buildItems(ctx context.Context, inputs []LoanItemInput) ([]models.LoanItem, error) {
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("items", "at least one item is required")
	}

	seen := make(map[uint]bool)
	var assetIDs []uint
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if in.Quantity < 0 {
			return nil, domain.NewValidationError(field+".quantity", "must be at least 1")
		}
		if in.UnitValue != nil && *in.UnitValue < 0 {
			return nil, domain.NewValidationError(field+".unit_value", "must not be negative")
		}
		if in.AssetID == nil {
			if strings.TrimSpace(in.Description) == "" {
				return nil, domain.NewValidationError(field+".description", "is required for untracked equipment")
			}
			continue
		}
		if in.Quantity > 1 {
			return nil, domain.NewValidationError(field+".quantity", "must be 1 for a tracked asset")
		}
		if seen[*in.AssetID] {
			return nil, domain.NewValidationError(field+".asset_id", "is listed more than once")
		}
		seen[*in.AssetID] = true
		assetIDs = append(assetIDs, *in.AssetID)
	}

	assets, err := s.repos.Asset.GetByIDs(ctx, assetIDs)
	if err != nil {
		return nil, err
	}

	items := make([]models.LoanItem, 0, len(inputs))
	for i, in := range inputs {
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		item := models.LoanItem{
			Position:    i,
			AssetID:     in.AssetID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    qty,
		}
		if in.AssetID != nil {
			asset, ok := assets[*in.AssetID]
			if !ok {
				return nil, domain.NewNotFoundError("asset", *in.AssetID)
			}
			if asset.Status == string(domain.AssetRetired) {
				return nil, domain.NewValidationError(fmt.Sprintf("items[%d].asset_id", i), "asset is retired")
			}
			item.UnitValue = asset.CurrentValue
			if item.Description == "" {
				item.Description = asset.Name
			}
		}
		if in.UnitValue != nil {
			item.UnitValue = *in.UnitValue
		}
		item.TotalValue = float64(item.Quantity) * item.UnitValue
		items = append(items, item)
	}
	return items, nil
}

// ============================================================
// Review & approval
// ============================================================

// StartReview marks a submitted application as picked up by a reviewer
func (s *LoanService) StartReview(ctx context.Context, id uint, actor domain.Actor) (*models.LoanApplication, error) {
	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := s.step(w, domain.OpStartReview, nil, nil); err != nil {
			return err
		}
		w.event(EventLoanReviewStarted, nil)
		return nil
	})
}

// Approve approves a submitted or under-review application. Assets are
// reserved later, at issuance.
func (s *LoanService) Approve(ctx context.Context, id uint, remarks string, actor domain.Actor) (*models.LoanApplication, error) {
	if actor.IsAnonymous() {
		return nil, domain.NewValidationError("approved_by", "approver identity is required")
	}
	remarks = strings.TrimSpace(remarks)

	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		approver := actor.UserID
		err := s.step(w, domain.OpApprove, map[string]interface{}{
			"approved_by":      approver,
			"approved_at":      w.now,
			"approval_remarks": remarks,
		}, nil)
		if err != nil {
			return err
		}
		w.event(EventLoanApproved, func(ev *LoanEvent) { ev.Remarks = remarks })
		return nil
	})
}

// Reject rejects a submitted or under-review application. Terminal.
func (s *LoanService) Reject(ctx context.Context, id uint, reason string, actor domain.Actor) (*models.LoanApplication, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		fields := map[string]interface{}{
			"rejected_at":      w.now,
			"rejection_reason": reason,
		}
		if !actor.IsAnonymous() {
			fields["rejected_by"] = actor.UserID
		}
		if err := s.step(w, domain.OpReject, fields, nil); err != nil {
			return err
		}
		w.event(EventLoanRejected, func(ev *LoanEvent) { ev.Reason = reason })
		return nil
	})
}

// Cancel withdraws an application before issuance. Terminal.
func (s *LoanService) Cancel(ctx context.Context, id uint, reason string, actor domain.Actor) (*models.LoanApplication, error) {
	reason = strings.TrimSpace(reason)

	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := authorizeOwner(w.app, actor); err != nil {
			return err
		}
		err := s.step(w, domain.OpCancel, map[string]interface{}{
			"cancelled_at":        w.now,
			"cancellation_reason": reason,
		}, nil)
		if err != nil {
			return err
		}
		w.event(EventLoanCancelled, func(ev *LoanEvent) { ev.Reason = reason })
		return nil
	})
}

// ============================================================
// Issuance
// ============================================================

// IssueItemInput records the condition of an item at handover
type IssueItemInput struct {
	ItemID          uint   `json:"item_id"`
	ConditionBefore string `json:"condition_before"`
}

// Issue reserves every asset of an approved application. Either every
// reservation succeeds and the application becomes issued, or nothing
// changes and the lowest-id conflicting asset is reported.
func (s *LoanService) Issue(ctx context.Context, id uint, conditions []IssueItemInput, actor domain.Actor) (*models.LoanApplication, error) {
	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := requireTransition(w.app, domain.OpIssue); err != nil {
			return err
		}

		byItem, err := issueConditions(w.app, conditions)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{"issued_at": w.now}
		if !actor.IsAnonymous() {
			fields["issued_by"] = actor.UserID
		}
		if err := s.step(w, domain.OpIssue, fields, nil); err != nil {
			return err
		}

		if err := reserveAll(w.ctx, s.ledger.In(w.tx), w.app.Items); err != nil {
			return err
		}

		for _, item := range w.app.Items {
			cond, ok := byItem[item.ID]
			if !ok && item.Asset != nil {
				cond = domain.AssetCondition(item.Asset.Condition)
			}
			if cond == "" {
				continue
			}
			if err := w.tx.Loan.UpdateItem(w.ctx, item.ID, map[string]interface{}{
				"condition_before": string(cond),
			}); err != nil {
				return err
			}
		}

		w.event(EventLoanIssued, nil)
		return nil
	})
}

// reserveAll reserves the tracked assets of items in ascending asset id
// order. Concurrent issuances that share assets then lock rows in the same
// order, so the loser waits and sees the asset already loaned instead of
// deadlocking.
func reserveAll(ctx context.Context, r AssetReserver, items []models.LoanItem) error {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if item.AssetID == nil || seen[*item.AssetID] {
			continue
		}
		seen[*item.AssetID] = true
		ids = append(ids, *item.AssetID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := r.Reserve(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func issueConditions(app *models.LoanApplication, inputs []IssueItemInput) (map[uint]domain.AssetCondition, error) {
	known := make(map[uint]bool, len(app.Items))
	for _, it := range app.Items {
		known[it.ID] = true
	}

	out := make(map[uint]domain.AssetCondition, len(inputs))
	for i, in := range inputs {
		if !known[in.ItemID] {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "does not belong to this application")
		}
		cond := domain.AssetCondition(in.ConditionBefore)
		if !cond.Valid() {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].condition_before", i), "must be one of excellent, good, fair, poor, damaged")
		}
		out[in.ItemID] = cond
	}
	return out, nil
}

// MarkCollected records the physical handover of an issued loan
func (s *LoanService) MarkCollected(ctx context.Context, id uint, actor domain.Actor) (*models.LoanApplication, error) {
	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := s.step(w, domain.OpMarkCollected, map[string]interface{}{"collected_at": w.now}, nil); err != nil {
			return err
		}
		w.event(EventLoanCollected, nil)
		return nil
	})
}

// ============================================================
// Extension
// ============================================================

// ExtensionEvent is the payload of loan extension events
type ExtensionEvent struct {
	LoanEvent
	ExtensionID      uint      `json:"extension_id"`
	Decision         string    `json:"decision"`
	PreviousEndDate  time.Time `json:"previous_end_date"`
	RequestedEndDate time.Time `json:"requested_end_date"`
}

// RequestExtensionInput represents an extension request
type RequestExtensionInput struct {
	NewEndDate time.Time
	Reason     string
}

// RequestExtension asks for a later end date on an in-use loan. The status
// does not change.
func (s *LoanService) RequestExtension(ctx context.Context, id uint, input *RequestExtensionInput, actor domain.Actor) (*models.LoanApplication, error) {
	reason := strings.TrimSpace(input.Reason)
	if input.NewEndDate.IsZero() {
		return nil, domain.NewValidationError("new_end_date", "is required")
	}
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	newEnd := domain.DateOnly(input.NewEndDate.UTC())

	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := authorizeOwner(w.app, actor); err != nil {
			return err
		}
		if err := requireTransition(w.app, domain.OpRequestExtension); err != nil {
			return err
		}
		if !newEnd.After(w.app.LoanEndDate) {
			return domain.NewValidationError("new_end_date", "must be after the current loan end date")
		}
		pending, err := w.tx.Loan.FindPendingExtension(w.ctx, w.app.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			return domain.NewValidationError("extension", "a request is already pending")
		}

		if err := s.step(w, domain.OpRequestExtension, nil, nil); err != nil {
			return err
		}

		ext := &models.LoanExtension{
			LoanApplicationID: w.app.ID,
			PreviousEndDate:   w.app.LoanEndDate,
			RequestedEndDate:  newEnd,
			Reason:            reason,
			Status:            string(domain.ExtensionPending),
		}
		if !actor.IsAnonymous() {
			uid := actor.UserID
			ext.RequestedBy = &uid
		}
		if err := w.tx.Loan.CreateExtension(w.ctx, ext); err != nil {
			return err
		}

		w.box.add(EventLoanExtensionRequested, ExtensionEvent{
			LoanEvent:        newLoanEvent(w.app, actor.UserID, w.now),
			ExtensionID:      ext.ID,
			Decision:         string(domain.ExtensionPending),
			PreviousEndDate:  ext.PreviousEndDate,
			RequestedEndDate: ext.RequestedEndDate,
		})
		return nil
	})
}

// ApproveExtension applies the pending extension's end date
func (s *LoanService) ApproveExtension(ctx context.Context, id uint, note string, actor domain.Actor) (*models.LoanApplication, error) {
	return s.decideExtension(ctx, id, domain.OpApproveExtension, domain.ExtensionApproved, note, actor)
}

// RejectExtension declines the pending extension
func (s *LoanService) RejectExtension(ctx context.Context, id uint, note string, actor domain.Actor) (*models.LoanApplication, error) {
	return s.decideExtension(ctx, id, domain.OpRejectExtension, domain.ExtensionRejected, note, actor)
}

func (s *LoanService) decideExtension(ctx context.Context, id uint, op domain.LoanOperation, decision domain.ExtensionStatus, note string, actor domain.Actor) (*models.LoanApplication, error) {
	note = strings.TrimSpace(note)

	return s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := requireTransition(w.app, op); err != nil {
			return err
		}
		pending, err := w.tx.Loan.FindPendingExtension(w.ctx, w.app.ID)
		if err != nil {
			return err
		}
		if pending == nil {
			return domain.NewValidationError("extension", "no pending extension request")
		}

		previousEnd := w.app.LoanEndDate
		var fields map[string]interface{}
		if decision == domain.ExtensionApproved {
			if !pending.RequestedEndDate.After(previousEnd) {
				return domain.NewValidationError("new_end_date", "must be after the current loan end date")
			}
			fields = map[string]interface{}{"loan_end_date": pending.RequestedEndDate}
		}

		var decidedBy *uint
		if !actor.IsAnonymous() {
			uid := actor.UserID
			decidedBy = &uid
		}
		ok, err := w.tx.Loan.DecideExtension(w.ctx, pending.ID, string(decision), decidedBy, note, w.now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewValidationError("extension", "no pending extension request")
		}

		if err := s.step(w, op, fields, map[string]interface{}{"loan_end_date": previousEnd}); err != nil {
			return err
		}
		if decision == domain.ExtensionApproved {
			w.app.LoanEndDate = pending.RequestedEndDate
		}

		ev := ExtensionEvent{
			LoanEvent:        newLoanEvent(w.app, actor.UserID, w.now),
			ExtensionID:      pending.ID,
			Decision:         string(decision),
			PreviousEndDate:  previousEnd,
			RequestedEndDate: pending.RequestedEndDate,
		}
		ev.Remarks = note
		w.box.add(EventLoanExtensionDecided, ev)
		return nil
	})
}

// ============================================================
// Return
// ============================================================

// ReturnItemInput records one item coming back
type ReturnItemInput struct {
	ItemID         uint   `json:"item_id"`
	ConditionAfter string `json:"condition_after"`
	DamageReport   string `json:"damage_report,omitempty"`
}

// ReturnResult is the outcome of ProcessReturn
type ReturnResult struct {
	Application *models.LoanApplication
	Tickets     []*models.HelpdeskTicket
}

// ProcessReturn checks every item back in, releases the assets and
// completes the application. Each item returned with a damage report opens
// one maintenance ticket. All items must be returned together.
func (s *LoanService) ProcessReturn(ctx context.Context, id uint, inputs []ReturnItemInput, actor domain.Actor) (*ReturnResult, error) {
	var tickets []*models.HelpdeskTicket

	app, err := s.mutate(ctx, id, actor, func(w *loanTx) error {
		if err := requireTransition(w.app, domain.OpReturn); err != nil {
			return err
		}
		byItem, err := returnInputs(w.app, inputs)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{"returned_at": w.now}
		if !actor.IsAnonymous() {
			fields["returned_by"] = actor.UserID
		}
		if err := s.step(w, domain.OpReturn, fields, nil); err != nil {
			return err
		}

		ledger := s.ledger.In(w.tx)
		for _, item := range w.app.Items {
			in := byItem[item.ID]
			cond := domain.AssetCondition(in.ConditionAfter)
			report := strings.TrimSpace(in.DamageReport)

			update := map[string]interface{}{"condition_after": string(cond), "damage_report": nil}
			if report != "" {
				update["damage_report"] = report
			}
			if err := w.tx.Loan.UpdateItem(w.ctx, item.ID, update); err != nil {
				return err
			}

			if item.AssetID != nil {
				ledgerCond := cond
				if report != "" && !cond.RequiresMaintenance() {
					ledgerCond = domain.ConditionDamaged
				}
				if _, err := ledger.Release(w.ctx, *item.AssetID, ledgerCond); err != nil {
					return err
				}
			}

			if report == "" {
				continue
			}
			req := DamageTicketRequest{
				AssetID:      item.AssetID,
				Condition:    string(cond),
				DamageReport: report,
				Reference:    w.app.ApplicationNumber,
			}
			if item.Asset != nil {
				req.AssetTag = item.Asset.Tag
			} else if item.Description != "" {
				req.AssetTag = item.Description
			}
			ticket, err := s.tickets.openFromDamage(w.ctx, w.tx, w.box, actor, w.now, req)
			if err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}

		if err := s.step(w, domain.OpComplete, map[string]interface{}{"completed_at": w.now}, nil); err != nil {
			return err
		}
		w.event(EventLoanReturned, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Application: app, Tickets: tickets}, nil
}

func returnInputs(app *models.LoanApplication, inputs []ReturnItemInput) (map[uint]ReturnItemInput, error) {
	known := make(map[uint]bool, len(app.Items))
	for _, it := range app.Items {
		known[it.ID] = true
	}

	out := make(map[uint]ReturnItemInput, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if !known[in.ItemID] {
			return nil, domain.NewValidationError(field+".item_id", "does not belong to this application")
		}
		if _, dup := out[in.ItemID]; dup {
			return nil, domain.NewValidationError(field+".item_id", "is listed more than once")
		}
		if !domain.AssetCondition(in.ConditionAfter).Valid() {
			return nil, domain.NewValidationError(field+".condition_after", "must be one of excellent, good, fair, poor, damaged")
		}
		out[in.ItemID] = in
	}
	if len(out) != len(app.Items) {
		return nil, domain.NewValidationError("items", "every item must be returned together")
	}
	return out, nil
}
