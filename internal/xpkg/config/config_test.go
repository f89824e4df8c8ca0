package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Notification.DismissAfter)
	assert.Equal(t, 12, cfg.Canteen.Tables)
	assert.InDelta(t, 5.0, cfg.Canteen.TaxPercentage, 1e-9)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: "6543"
  user: canteen
  password: secret
  database: canteen
rabbitmq:
  host: mq.internal
  port: "5673"
store:
  driver: sqlite
  sqlite_path: /tmp/canteen.db
sync:
  poll_interval: 3s
canteen:
  name: North Block
  tax_percentage: 12.5
  timezone: UTC
  tables: 20
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "6543", cfg.DB.Port)
	assert.Equal(t, "mq.internal", cfg.RMQ.Host)
	assert.True(t, cfg.RMQ.IsConfigured())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/canteen.db", cfg.Store.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "North Block", cfg.Canteen.Name)
	assert.Equal(t, 20, cfg.Canteen.Tables)
	assert.Equal(t, time.UTC, cfg.Canteen.Location())
	// untouched section keeps its defaults
	assert.Equal(t, 5*time.Second, cfg.Notification.DismissAfter)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  host: from-file
store:
  driver: sqlite
`)
	t.Setenv("POSTGRES_HOST", "from-env")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SYNC_POLL_INTERVAL", "250ms")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DB.Host)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.PollInterval)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: mongo\n"},
		{"zero tables", "canteen:\n  tables: 0\n"},
		{"negative tax", "canteen:\n  tables: 4\n  tax_percentage: -1\n"},
		{"broken yaml", "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestRabbitMQNotConfigured(t *testing.T) {
	assert.False(t, Defaults().RMQ.IsConfigured())
	var r *RabbitMQ
	assert.False(t, r.IsConfigured())
}
