package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "0.16", cfg.Order.TaxRate)
	assert.Equal(t, "ORD", cfg.Order.NumberPrefix)
	assert.Equal(t, 30, cfg.Cart.StaleMinutes)
}

func TestLoadConfigFromYaml(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cafeteria.yml")
	content := `
database:
  type: sqlite
  name: cafe.db
cart:
  guest_ttl: 15m
  stale_minutes: 5
order:
  number_prefix: CAF
  tax_rate: "0.08"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 15*time.Minute, cfg.Cart.GuestTTL)
	assert.Equal(t, 5, cfg.Cart.StaleMinutes)
	assert.Equal(t, "CAF", cfg.Order.NumberPrefix)
	assert.Equal(t, "0.08", cfg.Order.TaxRate)
	// untouched sections keep defaults
	assert.Equal(t, 7*24*time.Hour, cfg.Cart.UserTTL)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultAppConfig()
	env := map[string]string{
		"CAFETERIA_DB_TYPE":            "sqlite",
		"CAFETERIA_WEB_PORT":           "9090",
		"CAFETERIA_CART_GUEST_TTL":     "10m",
		"CAFETERIA_CART_STALE_MINUTES": "3",
		"CAFETERIA_ORDER_SEQUENCE":     "redis",
	}
	applyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cart.GuestTTL)
	assert.Equal(t, 3, cfg.Cart.StaleMinutes)
	assert.Equal(t, "redis", cfg.Order.Sequence)
}
