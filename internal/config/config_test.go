package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8, cfg.Browser.PoolCapacity)
	assert.Equal(t, 30*time.Second, cfg.Browser.StepTimeout)
	assert.Equal(t, time.Hour, cfg.Store.SessionTTL)
	assert.Equal(t, "https://www.blinkit.com", cfg.Site.BaseURL)
	assert.Equal(t, ":8080", cfg.Server.Address)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	yamlConfig := []byte(`
browser:
  pool_capacity: 2
  step_timeout: 10s
  headless: false
site:
  base_url: "https://staging.example.com"
  pin_code: "560001"
store:
  session_ttl: 30m
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Browser.PoolCapacity)
	assert.Equal(t, 10*time.Second, cfg.Browser.StepTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "https://staging.example.com", cfg.Site.BaseURL)
	assert.Equal(t, "560001", cfg.Site.PinCode)
	assert.Equal(t, 30*time.Minute, cfg.Store.SessionTTL)

	// Untouched keys keep their defaults.
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 30*time.Second, cfg.Browser.ReapInterval)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool capacity", func(c *Config) { c.Browser.PoolCapacity = 0 }},
		{"negative step timeout", func(c *Config) { c.Browser.StepTimeout = -time.Second }},
		{"zero session ttl", func(c *Config) { c.Store.SessionTTL = 0 }},
		{"empty base url", func(c *Config) { c.Site.BaseURL = "" }},
		{"idle timeout without reap interval", func(c *Config) {
			c.Browser.IdleTimeout = time.Minute
			c.Browser.ReapInterval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
