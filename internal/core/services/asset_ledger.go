package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"

	"gorm.io/gorm"
)

// AssetLedger is the single source of truth for whether an asset can be
// lent. Every asset status change goes through it.
type AssetLedger struct {
	assets *repositories.AssetRepository
}

// NewAssetLedger creates a new asset ledger
func NewAssetLedger(repos *repositories.Repos) *AssetLedger {
	return &AssetLedger{assets: repos.Asset}
}

// In binds the ledger to a transaction's repositories
func (l *AssetLedger) In(tx *repositories.Repos) AssetReserver {
	return &AssetLedger{assets: tx.Asset}
}

// CheckAvailability reports whether the asset is currently available.
// Only one active loan per asset exists, so the date range is validated
// but not used for overlap checks.
func (l *AssetLedger) CheckAvailability(ctx context.Context, assetID uint, start, end time.Time) (bool, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return false, domain.NewValidationError("end_date", "must not be before start_date")
	}
	asset, err := l.get(ctx, assetID)
	if err != nil {
		return false, err
	}
	return asset.Status == string(domain.AssetAvailable), nil
}

// Reserve atomically claims an available asset
func (l *AssetLedger) Reserve(ctx context.Context, assetID uint) error {
	ok, err := l.assets.CompareAndSetStatus(ctx, assetID,
		[]domain.AssetStatus{domain.AssetAvailable}, domain.AssetLoaned, "")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return l.unavailable(ctx, assetID)
}

// Release returns a loaned asset to the pool, or to maintenance when the
// condition requires it. It returns the asset's new status.
func (l *AssetLedger) Release(ctx context.Context, assetID uint, conditionAfter domain.AssetCondition) (domain.AssetStatus, error) {
	if !conditionAfter.Valid() {
		return "", domain.NewValidationError("condition_after", "must be one of excellent, good, fair, poor, damaged")
	}

	to := domain.AssetAvailable
	if conditionAfter.RequiresMaintenance() {
		to = domain.AssetMaintenance
	}

	ok, err := l.assets.CompareAndSetStatus(ctx, assetID,
		[]domain.AssetStatus{domain.AssetLoaned}, to, conditionAfter)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", l.transitionError(ctx, assetID, "release")
	}
	return to, nil
}

// MarkServiceable returns a repaired asset from maintenance to the pool
func (l *AssetLedger) MarkServiceable(ctx context.Context, assetID uint, condition domain.AssetCondition) error {
	if condition == "" {
		condition = domain.ConditionGood
	}
	if !condition.Valid() || condition.RequiresMaintenance() {
		return domain.NewValidationError("condition", "must be a serviceable condition")
	}
	ok, err := l.assets.CompareAndSetStatus(ctx, assetID,
		[]domain.AssetStatus{domain.AssetMaintenance}, domain.AssetAvailable, condition)
	if err != nil {
		return err
	}
	if !ok {
		return l.transitionError(ctx, assetID, "mark_serviceable")
	}
	return nil
}

// Retire permanently removes an asset that is not on loan from circulation
func (l *AssetLedger) Retire(ctx context.Context, assetID uint) error {
	ok, err := l.assets.CompareAndSetStatus(ctx, assetID,
		[]domain.AssetStatus{domain.AssetAvailable, domain.AssetMaintenance}, domain.AssetRetired, "")
	if err != nil {
		return err
	}
	if !ok {
		return l.transitionError(ctx, assetID, "retire")
	}
	return nil
}

// RegisterAssetInput represents a new inventory entry
type RegisterAssetInput struct {
	Tag          string  `json:"tag"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Condition    string  `json:"condition"`
	CurrentValue float64 `json:"current_value"`
	Notes        string  `json:"notes"`
}

// Register adds an asset to the inventory as available
func (l *AssetLedger) Register(ctx context.Context, input *RegisterAssetInput) (*models.Asset, error) {
	tag := strings.TrimSpace(input.Tag)
	if tag == "" {
		return nil, domain.NewValidationError("tag", "is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	cond := domain.AssetCondition(input.Condition)
	if cond == "" {
		cond = domain.ConditionGood
	}
	if !cond.Valid() {
		return nil, domain.NewValidationError("condition", "must be one of excellent, good, fair, poor, damaged")
	}
	if input.CurrentValue < 0 {
		return nil, domain.NewValidationError("current_value", "must not be negative")
	}

	asset := &models.Asset{
		Tag:          tag,
		Name:         strings.TrimSpace(input.Name),
		Category:     input.Category,
		Condition:    string(cond),
		CurrentValue: input.CurrentValue,
		Status:       string(domain.AssetAvailable),
		Notes:        input.Notes,
	}
	if err := l.assets.Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// GetByID gets an asset
func (l *AssetLedger) GetByID(ctx context.Context, assetID uint) (*models.Asset, error) {
	return l.get(ctx, assetID)
}

// List lists assets
func (l *AssetLedger) List(ctx context.Context, filter repositories.AssetFilter, offset, limit int) ([]*models.Asset, int64, error) {
	return l.assets.List(ctx, filter, offset, limit)
}

func (l *AssetLedger) get(ctx context.Context, assetID uint) (*models.Asset, error) {
	asset, err := l.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("asset", assetID)
		}
		return nil, err
	}
	return asset, nil
}

func (l *AssetLedger) unavailable(ctx context.Context, assetID uint) error {
	asset, err := l.get(ctx, assetID)
	if err != nil {
		return err
	}
	return &domain.AssetUnavailableError{AssetID: asset.ID, Tag: asset.Tag, Status: asset.Status}
}

func (l *AssetLedger) transitionError(ctx context.Context, assetID uint, op string) error {
	asset, err := l.get(ctx, assetID)
	if err != nil {
		return err
	}
	return domain.NewTransitionError("asset", asset.Status, op)
}
