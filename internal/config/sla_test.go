package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ministry-assetloan/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSLATable_OverridesDefaults(t *testing.T) {
	table, err := ParseSLATable([]byte("windows:\n  critical: 2h\n  low: 96h\n"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, table[domain.PriorityCritical])
	assert.Equal(t, 96*time.Hour, table[domain.PriorityLow])
	assert.Equal(t, 8*time.Hour, table[domain.PriorityHigh])
	assert.Equal(t, 24*time.Hour, table[domain.PriorityMedium])
}

func TestParseSLATable_Invalid(t *testing.T) {
	_, err := ParseSLATable([]byte("windows:\n  urgent: 1h\n"))
	assert.Error(t, err)

	_, err = ParseSLATable([]byte("windows:\n  high: soon\n"))
	assert.Error(t, err)

	_, err = ParseSLATable([]byte("windows:\n  high: -1h\n"))
	assert.Error(t, err)
}

func TestLoadSLATable_MissingFileUsesDefaults(t *testing.T) {
	table, err := LoadSLATable(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSLATable(), table)
}

func TestLoadSLATable_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("windows:\n  medium: 12h\n"), 0o600))

	table, err := LoadSLATable(path)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, table[domain.PriorityMedium])
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DEV_DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_MODE", "prod")
	t.Setenv("PROD_DB_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "assetloan.events", cfg.Messaging.Exchange)
	assert.Equal(t, 30*time.Second, cfg.Workflow.DashboardCacheTTL)
	assert.False(t, cfg.SeedDevData)
}
