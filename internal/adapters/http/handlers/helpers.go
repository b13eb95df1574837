package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// getClientIP gets client IP address
func getClientIP(c *fiber.Ctx) string {
	ip := c.Get("X-Real-IP")
	if ip == "" {
		ip = c.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = c.IP()
	}
	return ip
}

// actorFrom builds the acting principal from the auth middleware locals.
// Anonymous callers get a zero UserID.
func actorFrom(c *fiber.Ctx) domain.Actor {
	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	label, _ := c.Locals("fullName").(string)
	if label == "" {
		label, _ = c.Locals("username").(string)
	}
	if label == "" {
		label = "guest"
	}
	return domain.Actor{
		UserID: userID,
		Role:   domain.Role(role),
		Label:  label,
		IP:     getClientIP(c),
	}
}

// parseID reads a positive numeric route parameter
func parseID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseDate parses a YYYY-MM-DD value as a UTC date. Empty input yields the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

// parseOptionalBody decodes the body into out when one was sent. An empty
// body leaves out untouched; a malformed one is an error.
func parseOptionalBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

// User-facing conflict messages. Details carry the specifics.
const (
	msgTransitionUnavailable = "this action is not available in the current state"
	msgItemsNotIssued        = "one or more items could not be issued"
)

// writeDomainError maps service errors onto the response envelope
func writeDomainError(c *fiber.Ctx, err error, fallback string) error {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		unavailable *domain.AssetUnavailableError
		transition  *domain.TransitionError
	)

	switch {
	case errors.As(err, &validation):
		return response.UnprocessableEntity(c, validation.Field, validation.Reason)
	case errors.As(err, &notFound):
		return response.NotFound(c, notFound.Error())
	case errors.As(err, &unavailable):
		return response.ErrorWithDetails(c, fiber.StatusConflict, msgItemsNotIssued, fiber.Map{
			"asset_id": unavailable.AssetID,
			"tag":      unavailable.Tag,
			"status":   unavailable.Status,
		})
	case errors.As(err, &transition):
		return response.ErrorWithDetails(c, fiber.StatusConflict, msgTransitionUnavailable, fiber.Map{
			"entity":         transition.Entity,
			"current_status": transition.From,
			"operation":      transition.Op,
		})
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to access this resource")
	case errors.Is(err, domain.ErrAlreadyExists):
		return response.Conflict(c, "Resource already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid username or password")
	case errors.Is(err, domain.ErrUserInactive):
		return response.Forbidden(c, "User account is inactive")
	}

	log.Printf("❌ %s: %+v", fallback, err)
	return response.InternalServerError(c, fallback)
}
