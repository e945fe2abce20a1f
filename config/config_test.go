package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mlm-project/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "data/participants", cfg.LevelDB.Path)
	require.True(t, cfg.Scheduler.Enabled)
	require.Equal(t, 8, cfg.Accrual.Workers)
	require.Equal(t, 30*time.Second, cfg.Store.BulkReadTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
leveldb:
  path: /tmp/mlm
scheduler:
  timezone: Asia/Kolkata
store:
  bulk_read_timeout: 5s
`), 0o644))
	t.Setenv("MLM_ACCRUAL_WORKERS", "3")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "/tmp/mlm", cfg.LevelDB.Path)
	require.Equal(t, 3, cfg.Accrual.Workers)
	require.Equal(t, 5*time.Second, cfg.Store.BulkReadTimeout)

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  timezone: Nowhere/Special\n"), 0o644))

	_, err := config.Load(path)
	require.ErrorContains(t, err, "scheduler.timezone")
}

func TestSchedulerConfig_Location(t *testing.T) {
	loc, err := config.SchedulerConfig{Timezone: "Asia/Kolkata"}.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())

	_, err = config.SchedulerConfig{Timezone: "Nowhere/Special"}.Location()
	require.Error(t, err)
}
