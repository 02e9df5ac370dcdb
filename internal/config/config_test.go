package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, int64(25<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Vision.BaseURL)
	assert.Equal(t, "gpt-5", cfg.Vision.Model)
	assert.Equal(t, 2048, cfg.Vision.MaxCompletionTokens)
	assert.Equal(t, 120*time.Second, cfg.Vision.Timeout)
	assert.Equal(t, AuthBearer, cfg.Vision.AuthMode)
	assert.Equal(t, ImageStoreInline, cfg.Images.Store)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Empty(t, cfg.Database.DSN)
	assert.GreaterOrEqual(t, cfg.Server.WriteTimeout, cfg.CompareBudget())
}

func TestCompareBudget(t *testing.T) {
	cfg := Config{Vision: VisionConfig{Timeout: 120 * time.Second}}
	assert.Equal(t, 375*time.Second, cfg.CompareBudget())

	cfg.Vision.Timeout = 0
	assert.Equal(t, 105*time.Second, cfg.CompareBudget())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AI_INTEGRATIONS_OPENAI_BASE_URL", "http://proxy.local/v1/")
	t.Setenv("AI_AUTH_MODE", "Azure-Key")
	t.Setenv("IMAGE_STORE", "S3")
	t.Setenv("DATABASE_URL", " postgres://u:p@db/feridas ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://proxy.local/v1", cfg.Vision.BaseURL)
	assert.Equal(t, AuthAzureKey, cfg.Vision.AuthMode)
	assert.Equal(t, ImageStoreS3, cfg.Images.Store)
	assert.Equal(t, "postgres://u:p@db/feridas", cfg.Database.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.Origins())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 5000, MaxBodyBytes: 1},
			Logging: LoggingConfig{Format: "text"},
			Vision:  VisionConfig{AuthMode: AuthBearer, MaxCompletionTokens: 1},
			Images:  ImageConfig{Store: ImageStoreInline},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"port", func(c *Config) { c.Server.Port = 0 }, false},
		{"body-limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, false},
		{"auth-mode", func(c *Config) { c.Vision.AuthMode = "basic" }, false},
		{"image-store", func(c *Config) { c.Images.Store = "gcs" }, false},
		{"log-format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"tokens", func(c *Config) { c.Vision.MaxCompletionTokens = 0 }, false},
		{"write-timeout-covers-compare", func(c *Config) {
			c.Vision.Timeout = 120 * time.Second
			c.Server.WriteTimeout = 375 * time.Second
		}, true},
		{"write-timeout-too-short", func(c *Config) {
			c.Vision.Timeout = 120 * time.Second
			c.Server.WriteTimeout = 180 * time.Second
		}, false},
		{"write-timeout-disabled", func(c *Config) {
			c.Vision.Timeout = 120 * time.Second
			c.Server.WriteTimeout = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
