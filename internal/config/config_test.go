package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := fromViper(viper.New())

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "voucher-export", cfg.Export.Queue)
	assert.Equal(t, 3, cfg.Export.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Export.Backoff)
	assert.Equal(t, 5, cfg.Export.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
	assert.NotEmpty(t, cfg.Inventory.LowStockRule)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("BIZZPLUS_DATABASE_URL", "postgres://u:p@localhost:5432/bizzplus")
	t.Setenv("BIZZPLUS_EXPORT_CONCURRENCY", "8")
	t.Setenv("BIZZPLUS_APP_ENV", "production")
	t.Setenv("BIZZPLUS_EXPORT_BACKOFF", "500ms")

	cfg := fromViper(viper.New())

	assert.Equal(t, "postgres://u:p@localhost:5432/bizzplus", cfg.Database.URL)
	assert.Equal(t, 8, cfg.Export.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Export.Backoff)
	assert.False(t, cfg.Log.Development)
}

func TestValidate(t *testing.T) {
	cfg := fromViper(viper.New())

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
	assert.Contains(t, err.Error(), "jwt.secret")

	cfg.Database.URL = "postgres://localhost/bizzplus"
	cfg.JWT.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())
}
