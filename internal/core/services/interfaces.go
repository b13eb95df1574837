package services

import (
	"context"

	"ministry-assetloan/internal/core/domain"
)

// AssetReserver is the only way workflow code changes an asset's status.
// Implemented by AssetLedger.
type AssetReserver interface {
	Reserve(ctx context.Context, assetID uint) error
	Release(ctx context.Context, assetID uint, conditionAfter domain.AssetCondition) (domain.AssetStatus, error)
}

// SummaryInvalidator drops cached reporting data after a write.
// Implemented by DashboardService.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}
