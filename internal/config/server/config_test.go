package server

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, "therapist", cfg.Browser.Role)
	assert.Equal(t, 10, cfg.Browser.PageSize)
	assert.Equal(t, []string{".c3d"}, cfg.Storage.Local.Extensions)
	assert.Equal(t, 5*time.Minute, Duration(cfg.Cache.TTL, 0))
	assert.Equal(t, 30*time.Second, Duration(cfg.Cache.FetchTimeout, 0))
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("storage.type", "s3")
	viper.Set("storage.s3.bucket", "c3d-examples")
	viper.Set("browser.role", "researcher")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "c3d-examples", cfg.Storage.S3.Bucket)
	assert.Equal(t, "researcher", cfg.Browser.Role)
}

func TestValidate(t *testing.T) {
	cfg := GetServerDefault()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Storage.Type = "ftp"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Browser.Role = "guest"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Metadata.Type = "postgres"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Browser.SizeThresholds.Medium = 1
	assert.Error(t, bad.Validate())
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, Duration("15s", time.Minute))
	assert.Equal(t, time.Minute, Duration("soon", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
}
