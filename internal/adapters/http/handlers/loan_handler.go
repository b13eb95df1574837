package handlers

import (
	"strings"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/pagination"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan application endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// SubmitLoanRequest represents a loan application. Applicant fields are
// only read for guests; authenticated applicants use their profile.
type SubmitLoanRequest struct {
	ApplicantName     string                   `json:"applicant_name"`
	ApplicantEmail    string                   `json:"applicant_email"`
	ApplicantPhone    string                   `json:"applicant_phone"`
	ApplicantDivision string                   `json:"applicant_division"`
	Purpose           string                   `json:"purpose"`
	Location          string                   `json:"location"`
	LoanStartDate     string                   `json:"loan_start_date" example:"2026-01-20"`
	LoanEndDate       string                   `json:"loan_end_date" example:"2026-01-25"`
	Priority          string                   `json:"priority,omitempty"`
	Items             []services.LoanItemInput `json:"items"`
}

// RemarksRequest carries optional remarks
type RemarksRequest struct {
	Remarks string `json:"remarks"`
}

// ReasonRequest carries a reason
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// IssueRequest records item conditions at handover
type IssueRequest struct {
	Items []services.IssueItemInput `json:"items"`
}

// ExtensionRequest asks for a later end date
type ExtensionRequest struct {
	NewEndDate string `json:"new_end_date" example:"2026-02-01"`
	Reason     string `json:"reason"`
}

// ReturnRequest records the condition of every returned item
type ReturnRequest struct {
	Items []services.ReturnItemInput `json:"items"`
}

func (h *LoanHandler) toResponse(app *models.LoanApplication) *models.LoanApplicationResponse {
	return app.ToResponse(h.loanService.Now())
}

func (h *LoanHandler) toResponses(apps []*models.LoanApplication) []*models.LoanApplicationResponse {
	now := h.loanService.Now()
	out := make([]*models.LoanApplicationResponse, len(apps))
	for i, app := range apps {
		out[i] = app.ToResponse(now)
	}
	return out
}

func listParams(p *pagination.Params) services.ListParams {
	return services.ListParams{Sort: p.Sort, Desc: p.Desc, Offset: p.Offset, Limit: p.Limit}
}

// Submit submits a loan application
// @Summary Submit loan application
// @Description Submit a new application as an authenticated employee or as a guest
// @Tags Loans
// @Accept json
// @Produce json
// @Param body body SubmitLoanRequest true "Application"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Submit(c *fiber.Ctx) error {
	var req SubmitLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	start, err := parseDate(req.LoanStartDate)
	if err != nil {
		return response.UnprocessableEntity(c, "loan_start_date", "must be a date in YYYY-MM-DD format")
	}
	end, err := parseDate(req.LoanEndDate)
	if err != nil {
		return response.UnprocessableEntity(c, "loan_end_date", "must be a date in YYYY-MM-DD format")
	}

	actor := actorFrom(c)
	var owner domain.Owner
	if actor.IsAnonymous() {
		owner = domain.GuestOwner{
			Name:     req.ApplicantName,
			Email:    req.ApplicantEmail,
			Phone:    req.ApplicantPhone,
			Division: req.ApplicantDivision,
		}
	} else {
		owner = domain.AuthenticatedOwner{UserID: actor.UserID}
	}

	app, err := h.loanService.Submit(c.Context(), &services.SubmitLoanInput{
		Owner:         owner,
		Purpose:       req.Purpose,
		Location:      req.Location,
		LoanStartDate: start,
		LoanEndDate:   end,
		Priority:      req.Priority,
		Items:         req.Items,
	}, actor)
	if err != nil {
		return writeDomainError(c, err, "Failed to submit application")
	}

	return response.Created(c, "Application submitted successfully", h.toResponse(app))
}

// Track lets a guest look up an application
// @Summary Track application
// @Description Look up a guest application by number and email
// @Tags Loans
// @Produce json
// @Param number query string true "Application number"
// @Param email query string true "Applicant email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/track [get]
func (h *LoanHandler) Track(c *fiber.Ctx) error {
	app, err := h.loanService.Track(c.Context(), c.Query("number"), c.Query("email"))
	if err != nil {
		return writeDomainError(c, err, "Failed to track application")
	}
	return response.Success(c, "Application retrieved successfully", h.toResponse(app))
}

// Mine lists the caller's applications
// @Summary My applications
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) Mine(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	apps, total, err := h.loanService.ListMine(c.Context(), userID, listParams(params))
	if err != nil {
		return writeDomainError(c, err, "Failed to list applications")
	}
	return response.Success(c, "Applications retrieved successfully",
		pagination.NewResponse(h.toResponses(apps), params, total))
}

// Pending lists applications waiting for a decision
// @Summary Pending approvals
// @Description Submitted and under-review applications, oldest first unless sorted
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param sort query string false "created_at | loan_start_date | loan_end_date | application_number"
// @Param order query string false "asc | desc"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/pending [get]
func (h *LoanHandler) Pending(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	apps, total, err := h.loanService.ListPending(c.Context(), listParams(params))
	if err != nil {
		return writeDomainError(c, err, "Failed to list pending applications")
	}
	return response.Success(c, "Pending applications retrieved successfully",
		pagination.NewResponse(h.toResponses(apps), params, total))
}

// Active lists issued and in-use loans
// @Summary Active loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/active [get]
func (h *LoanHandler) Active(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	apps, total, err := h.loanService.ListActive(c.Context(), listParams(params))
	if err != nil {
		return writeDomainError(c, err, "Failed to list active loans")
	}
	return response.Success(c, "Active loans retrieved successfully",
		pagination.NewResponse(h.toResponses(apps), params, total))
}

// Overdue lists overdue loans
// @Summary Overdue loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/overdue [get]
func (h *LoanHandler) Overdue(c *fiber.Ctx) error {
	apps, err := h.loanService.ListOverdue(c.Context())
	if err != nil {
		return writeDomainError(c, err, "Failed to list overdue loans")
	}
	return response.Success(c, "Overdue loans retrieved successfully", h.toResponses(apps))
}

// Get returns one application
// @Summary Get application
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	app, err := h.loanService.GetForActor(c.Context(), id, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to get application")
	}
	return response.Success(c, "Application retrieved successfully", h.toResponse(app))
}

// History returns the audit trail of an application
// @Summary Application history
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/history [get]
func (h *LoanHandler) History(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	entries, err := h.loanService.History(c.Context(), id)
	if err != nil {
		return writeDomainError(c, err, "Failed to get history")
	}
	return response.Success(c, "History retrieved successfully", entries)
}

// StartReview puts a submitted application under review
// @Summary Start review
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/review [put]
func (h *LoanHandler) StartReview(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	app, err := h.loanService.StartReview(c.Context(), id, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to start review")
	}
	return response.Success(c, "Review started", h.toResponse(app))
}

// Approve approves an application
// @Summary Approve application
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body RemarksRequest false "Remarks"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/approve [put]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req RemarksRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.Approve(c.Context(), id, req.Remarks, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to approve application")
	}
	return response.Success(c, "Application approved", h.toResponse(app))
}

// Reject rejects an application
// @Summary Reject application
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body ReasonRequest true "Reason"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/reject [put]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.Reject(c.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to reject application")
	}
	return response.Success(c, "Application rejected", h.toResponse(app))
}

// Issue hands over the equipment and reserves the assets
// @Summary Issue loan
// @Description Reserves every asset; fails with 409 and changes nothing if any asset is unavailable
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body IssueRequest false "Item conditions at handover"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/issue [put]
func (h *LoanHandler) Issue(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req IssueRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.Issue(c.Context(), id, req.Items, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to issue loan")
	}
	return response.Success(c, "Loan issued", h.toResponse(app))
}

// Collect records that the applicant picked the equipment up
// @Summary Mark collected
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/collect [put]
func (h *LoanHandler) Collect(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	app, err := h.loanService.MarkCollected(c.Context(), id, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to mark collected")
	}
	return response.Success(c, "Loan collected", h.toResponse(app))
}

// RequestExtension asks for a later end date
// @Summary Request extension
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body ExtensionRequest true "Extension"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/extensions [post]
func (h *LoanHandler) RequestExtension(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req ExtensionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	newEnd, err := parseDate(req.NewEndDate)
	if err != nil {
		return response.UnprocessableEntity(c, "new_end_date", "must be a date in YYYY-MM-DD format")
	}

	app, err := h.loanService.RequestExtension(c.Context(), id, &services.RequestExtensionInput{
		NewEndDate: newEnd,
		Reason:     req.Reason,
	}, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to request extension")
	}
	return response.Created(c, "Extension requested", h.toResponse(app))
}

// ApproveExtension applies the pending extension
// @Summary Approve extension
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body RemarksRequest false "Note"
// @Success 200 {object} response.Response
// @Router /loans/{id}/extensions/approve [put]
func (h *LoanHandler) ApproveExtension(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req RemarksRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.ApproveExtension(c.Context(), id, req.Remarks, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to approve extension")
	}
	return response.Success(c, "Extension approved", h.toResponse(app))
}

// RejectExtension declines the pending extension
// @Summary Reject extension
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body RemarksRequest false "Note"
// @Success 200 {object} response.Response
// @Router /loans/{id}/extensions/reject [put]
func (h *LoanHandler) RejectExtension(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req RemarksRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.RejectExtension(c.Context(), id, req.Remarks, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to reject extension")
	}
	return response.Success(c, "Extension rejected", h.toResponse(app))
}

// Return checks all items back in and completes the loan
// @Summary Process return
// @Description Items returned with a damage report open a maintenance ticket each
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body ReturnRequest true "Returned items"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/return [put]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req ReturnRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.loanService.ProcessReturn(c.Context(), id, req.Items, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to process return")
	}

	now := h.loanService.Now()
	tickets := make([]*models.TicketResponse, len(result.Tickets))
	for i, t := range result.Tickets {
		tickets[i] = t.ToResponse(now)
	}
	return response.Success(c, "Loan returned and completed", fiber.Map{
		"application": result.Application.ToResponse(now),
		"tickets":     tickets,
	})
}

// Cancel withdraws an application before issuance
// @Summary Cancel application
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body ReasonRequest false "Reason"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/cancel [put]
func (h *LoanHandler) Cancel(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}
	var req ReasonRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.loanService.Cancel(c.Context(), id, strings.TrimSpace(req.Reason), actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to cancel application")
	}
	return response.Success(c, "Application cancelled", h.toResponse(app))
}
