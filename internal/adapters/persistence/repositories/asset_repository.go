package repositories

import (
	"context"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/core/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AssetRepository handles asset data access
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// AssetFilter narrows asset listings
type AssetFilter struct {
	Status   string
	Category string
	Search   string
}

// Create creates a new asset
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(asset).Error)
}

// GetByID gets an asset by ID
func (r *AssetRepository) GetByID(ctx context.Context, id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, id).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &asset, nil
}

// GetByIDs gets assets keyed by ID
func (r *AssetRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Asset, error) {
	out := make(map[uint]*models.Asset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var assets []*models.Asset
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	for _, a := range assets {
		out[a.ID] = a
	}
	return out, nil
}

// List lists assets with pagination
func (r *AssetRepository) List(ctx context.Context, filter AssetFilter, offset, limit int) ([]*models.Asset, int64, error) {
	var assets []*models.Asset
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Asset{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("tag LIKE ? OR name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.WithStack(err)
	}
	err := query.Order("tag ASC").Offset(offset).Limit(limit).Find(&assets).Error
	return assets, total, errors.WithStack(err)
}

// CompareAndSetStatus moves the asset to `to` only if its current status is
// one of from. It reports whether the row was updated.
func (r *AssetRepository) CompareAndSetStatus(ctx context.Context, id uint, from []domain.AssetStatus, to domain.AssetStatus, condition domain.AssetCondition) (bool, error) {
	updates := map[string]interface{}{"status": string(to)}
	if condition != "" {
		updates["condition"] = string(condition)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND status IN ?", id, assetStatusStrings(from)).
		Updates(updates)
	if result.Error != nil {
		return false, errors.WithStack(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CountByStatus returns asset counts keyed by status
func (r *AssetRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countByStatus(ctx, r.db, &models.Asset{})
	return counts, errors.WithStack(err)
}

func assetStatusStrings(in []domain.AssetStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
