package repositories

import (
	"context"

	"ministry-assetloan/internal/adapters/persistence/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AuditRepository handles audit log data access
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(entry).Error)
}

// ListByEntity lists audit entries for an entity, newest first
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, errors.WithStack(err)
}
