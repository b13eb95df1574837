package repositories_test

import (
	"context"
	"testing"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/adapters/persistence/testutil"
	"ministry-assetloan/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetRepository_CompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewRepositories(testutil.NewDB(t))

	asset := &models.Asset{Tag: "LAP-001", Name: "Laptop", Condition: "good", Status: "available"}
	require.NoError(t, repos.Asset.Create(ctx, asset))

	ok, err := repos.Asset.CompareAndSetStatus(ctx, asset.ID,
		[]domain.AssetStatus{domain.AssetAvailable}, domain.AssetLoaned, "")
	require.NoError(t, err)
	assert.True(t, ok)

	// second claim loses
	ok, err = repos.Asset.CompareAndSetStatus(ctx, asset.ID,
		[]domain.AssetStatus{domain.AssetAvailable}, domain.AssetLoaned, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Asset.CompareAndSetStatus(ctx, asset.ID,
		[]domain.AssetStatus{domain.AssetLoaned}, domain.AssetMaintenance, domain.ConditionDamaged)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repos.Asset.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "maintenance", got.Status)
	assert.Equal(t, "damaged", got.Condition)
}

func TestAssetRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewRepositories(testutil.NewDB(t))

	for i, st := range []string{"available", "available", "loaned", "retired"} {
		require.NoError(t, repos.Asset.Create(ctx, &models.Asset{
			Tag: "T-" + string(rune('A'+i)), Name: "Item", Status: st,
		}))
	}

	counts, err := repos.Asset.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["available"])
	assert.Equal(t, int64(1), counts["loaned"])
	assert.Equal(t, int64(1), counts["retired"])
}

func TestRepos_ExecTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewRepositories(testutil.NewDB(t))

	asset := &models.Asset{Tag: "PRJ-1", Name: "Projector", Status: "available"}
	require.NoError(t, repos.Asset.Create(ctx, asset))

	err := repos.ExecTx(ctx, func(tx *repositories.Repos) error {
		ok, err := tx.Asset.CompareAndSetStatus(ctx, asset.ID,
			[]domain.AssetStatus{domain.AssetAvailable}, domain.AssetLoaned, "")
		require.NoError(t, err)
		require.True(t, ok)
		return domain.NewValidationError("x", "forced")
	})
	require.Error(t, err)

	got, err := repos.Asset.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "available", got.Status)
}
