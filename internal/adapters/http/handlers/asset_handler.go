package handlers

import (
	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/pagination"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AssetHandler handles inventory endpoints
type AssetHandler struct {
	ledger *services.AssetLedger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(ledger *services.AssetLedger) *AssetHandler {
	return &AssetHandler{ledger: ledger}
}

// ConditionRequest carries an asset condition
type ConditionRequest struct {
	Condition string `json:"condition"`
}

// List lists assets
// @Summary List assets
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param status query string false "available | loaned | maintenance | retired"
// @Param category query string false "Category"
// @Param search query string false "Tag or name"
// @Success 200 {object} response.Response
// @Router /assets [get]
func (h *AssetHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	assets, total, err := h.ledger.List(c.Context(), repositories.AssetFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}, params.Offset, params.Limit)
	if err != nil {
		return writeDomainError(c, err, "Failed to list assets")
	}

	out := make([]*models.AssetResponse, len(assets))
	for i, a := range assets {
		out[i] = a.ToResponse()
	}
	return response.Success(c, "Assets retrieved successfully", pagination.NewResponse(out, params, total))
}

// Register adds an asset to the inventory
// @Summary Register asset
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RegisterAssetInput true "Asset"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /assets [post]
func (h *AssetHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterAssetInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	asset, err := h.ledger.Register(c.Context(), &req)
	if err != nil {
		return writeDomainError(c, err, "Failed to register asset")
	}
	return response.Created(c, "Asset registered successfully", asset.ToResponse())
}

// Get returns one asset
// @Summary Get asset
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /assets/{id} [get]
func (h *AssetHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}
	asset, err := h.ledger.GetByID(c.Context(), id)
	if err != nil {
		return writeDomainError(c, err, "Failed to get asset")
	}
	return response.Success(c, "Asset retrieved successfully", asset.ToResponse())
}

// Availability reports whether an asset can be lent
// @Summary Check availability
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param start query string false "YYYY-MM-DD"
// @Param end query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /assets/{id}/availability [get]
func (h *AssetHandler) Availability(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}
	start, err := parseDate(c.Query("start"))
	if err != nil {
		return response.UnprocessableEntity(c, "start", "must be a date in YYYY-MM-DD format")
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		return response.UnprocessableEntity(c, "end", "must be a date in YYYY-MM-DD format")
	}

	available, err := h.ledger.CheckAvailability(c.Context(), id, start, end)
	if err != nil {
		return writeDomainError(c, err, "Failed to check availability")
	}
	return response.Success(c, "Availability checked", fiber.Map{
		"asset_id":  id,
		"available": available,
	})
}

// MarkServiceable returns a repaired asset to the pool
// @Summary Mark serviceable
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param body body ConditionRequest false "Condition after repair"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /assets/{id}/serviceable [put]
func (h *AssetHandler) MarkServiceable(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}
	var req ConditionRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.ledger.MarkServiceable(c.Context(), id, domain.AssetCondition(req.Condition)); err != nil {
		return writeDomainError(c, err, "Failed to update asset")
	}
	return h.Get(c)
}

// Retire removes an asset from circulation
// @Summary Retire asset
// @Tags Assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /assets/{id}/retire [put]
func (h *AssetHandler) Retire(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid asset ID")
	}
	if err := h.ledger.Retire(c.Context(), id); err != nil {
		return writeDomainError(c, err, "Failed to retire asset")
	}
	return h.Get(c)
}
