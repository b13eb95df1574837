package repositories

import (
	"context"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TicketRepository handles helpdesk ticket data access
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// TicketFilter narrows ticket listings
type TicketFilter struct {
	Statuses           []string
	ExcludeStatuses    []string
	Category           string
	AssignedTo         *uint
	OriginatingAssetID *uint
}

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.HelpdeskTicket) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(ticket).Error)
}

// GetByID gets a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id uint) (*models.HelpdeskTicket, error) {
	var ticket models.HelpdeskTicket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &ticket, nil
}

func (r *TicketRepository) filtered(ctx context.Context, filter TicketFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.HelpdeskTicket{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.OriginatingAssetID != nil {
		query = query.Where("originating_asset_id = ?", *filter.OriginatingAssetID)
	}
	return query
}

// List lists tickets with pagination, oldest first
func (r *TicketRepository) List(ctx context.Context, filter TicketFilter, offset, limit int) ([]*models.HelpdeskTicket, int64, error) {
	var tickets []*models.HelpdeskTicket
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.WithStack(err)
	}

	query := r.filtered(ctx, filter).Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&tickets).Error
	return tickets, total, errors.WithStack(err)
}

// ListAll lists every ticket matching filter ordered by SLA deadline
func (r *TicketRepository) ListAll(ctx context.Context, filter TicketFilter) ([]*models.HelpdeskTicket, error) {
	var tickets []*models.HelpdeskTicket
	err := r.filtered(ctx, filter).
		Order("sla_resolution_due_at ASC").
		Order("id ASC").
		Find(&tickets).Error
	return tickets, errors.WithStack(err)
}

// CompareAndSetStatus moves the ticket from one status to another with
// extra column updates. It reports whether the row was updated.
func (r *TicketRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&models.HelpdeskTicket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, errors.WithStack(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ExtendSLA moves the resolution deadline if the ticket is still in status
func (r *TicketRepository) ExtendSLA(ctx context.Context, id uint, status string, newDue time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.HelpdeskTicket{}).
		Where("id = ? AND status = ?", id, status).
		Updates(map[string]interface{}{
			"sla_resolution_due_at": newDue,
			"sla_extended_count":    gorm.Expr("sla_extended_count + 1"),
		})
	if result.Error != nil {
		return false, errors.WithStack(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CountByStatus returns ticket counts keyed by status
func (r *TicketRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countByStatus(ctx, r.db, &models.HelpdeskTicket{})
	return counts, errors.WithStack(err)
}
