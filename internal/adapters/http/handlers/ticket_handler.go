package handlers

import (
	"strconv"
	"strings"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/pagination"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TicketHandler handles helpdesk endpoints
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// AssignRequest names the staff member taking the ticket
type AssignRequest struct {
	AssignedTo uint `json:"assigned_to"`
}

// ResolveRequest carries the resolution note
type ResolveRequest struct {
	Note string `json:"note"`
}

// ExtendSLARequest pushes the deadline back by a Go duration such as "4h"
type ExtendSLARequest struct {
	ExtendBy string `json:"extend_by" example:"4h"`
	Reason   string `json:"reason"`
}

func (h *TicketHandler) toResponse(t *models.HelpdeskTicket) *models.TicketResponse {
	return t.ToResponse(h.ticketService.Now())
}

// Create opens a ticket
// @Summary Create ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateTicketInput true "Ticket"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tickets [post]
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	var req services.CreateTicketInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ticket, err := h.ticketService.Create(c.Context(), &req, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to create ticket")
	}
	return response.Created(c, "Ticket created successfully", h.toResponse(ticket))
}

// List lists tickets
// @Summary List tickets
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param category query string false "Category"
// @Param assigned_to query int false "Assignee user ID"
// @Success 200 {object} response.Response
// @Router /tickets [get]
func (h *TicketHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.TicketFilter{Category: c.Query("category")}
	if status := c.Query("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}
	if v := c.Query("assigned_to"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return response.BadRequest(c, "Invalid assigned_to")
		}
		uid := uint(id)
		filter.AssignedTo = &uid
	}

	tickets, total, err := h.ticketService.List(c.Context(), filter, params.Offset, params.Limit)
	if err != nil {
		return writeDomainError(c, err, "Failed to list tickets")
	}

	now := h.ticketService.Now()
	out := make([]*models.TicketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = t.ToResponse(now)
	}
	return response.Success(c, "Tickets retrieved successfully", pagination.NewResponse(out, params, total))
}

// Breaches lists tickets past their SLA deadline
// @Summary SLA breaches
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /tickets/breaches [get]
func (h *TicketHandler) Breaches(c *fiber.Ctx) error {
	report, err := h.ticketService.EvaluateBreaches(c.Context())
	if err != nil {
		return writeDomainError(c, err, "Failed to evaluate breaches")
	}
	return response.Success(c, "Breaches evaluated", report)
}

// Get returns one ticket
// @Summary Get ticket
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tickets/{id} [get]
func (h *TicketHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	ticket, err := h.ticketService.GetByID(c.Context(), id)
	if err != nil {
		return writeDomainError(c, err, "Failed to get ticket")
	}
	return response.Success(c, "Ticket retrieved successfully", h.toResponse(ticket))
}

// Assign gives a ticket to a staff member
// @Summary Assign ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param body body AssignRequest true "Assignee"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /tickets/{id}/assign [put]
func (h *TicketHandler) Assign(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.AssignedTo == 0 {
		return response.UnprocessableEntity(c, "assigned_to", "is required")
	}

	ticket, err := h.ticketService.Assign(c.Context(), id, req.AssignedTo, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to assign ticket")
	}
	return response.Success(c, "Ticket assigned", h.toResponse(ticket))
}

// Start marks work as begun
// @Summary Start work
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} response.Response
// @Router /tickets/{id}/start [put]
func (h *TicketHandler) Start(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	ticket, err := h.ticketService.Start(c.Context(), id, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to start ticket")
	}
	return response.Success(c, "Work started", h.toResponse(ticket))
}

// Resolve records the fix
// @Summary Resolve ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param body body ResolveRequest false "Resolution"
// @Success 200 {object} response.Response
// @Router /tickets/{id}/resolve [put]
func (h *TicketHandler) Resolve(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	var req ResolveRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ticket, err := h.ticketService.Resolve(c.Context(), id, req.Note, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to resolve ticket")
	}
	return response.Success(c, "Ticket resolved", h.toResponse(ticket))
}

// Close closes a resolved ticket
// @Summary Close ticket
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} response.Response
// @Router /tickets/{id}/close [put]
func (h *TicketHandler) Close(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	ticket, err := h.ticketService.Close(c.Context(), id, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to close ticket")
	}
	return response.Success(c, "Ticket closed", h.toResponse(ticket))
}

// Cancel withdraws a ticket
// @Summary Cancel ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param body body ReasonRequest true "Reason"
// @Success 200 {object} response.Response
// @Router /tickets/{id}/cancel [put]
func (h *TicketHandler) Cancel(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	var req ReasonRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ticket, err := h.ticketService.Cancel(c.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to cancel ticket")
	}
	return response.Success(c, "Ticket cancelled", h.toResponse(ticket))
}

// ExtendSLA pushes the resolution deadline back
// @Summary Extend SLA
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param body body ExtendSLARequest true "Extension"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tickets/{id}/extend-sla [put]
func (h *TicketHandler) ExtendSLA(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid ticket ID")
	}
	var req ExtendSLARequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	by, err := time.ParseDuration(req.ExtendBy)
	if err != nil {
		return response.UnprocessableEntity(c, "extend_by", "must be a duration such as 4h or 90m")
	}

	ticket, err := h.ticketService.ExtendSLA(c.Context(), id, by, req.Reason, actorFrom(c))
	if err != nil {
		return writeDomainError(c, err, "Failed to extend SLA")
	}
	return response.Success(c, "SLA extended", h.toResponse(ticket))
}
