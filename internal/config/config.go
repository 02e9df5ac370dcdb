// Package config loads service settings from the environment, optionally
// seeded by a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Vision   VisionConfig
	Images   ImageConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           int           `env:"PORT,default=5000"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT,default=30s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT,default=390s"`
	MaxBodyBytes   int64         `env:"HTTP_MAX_BODY_BYTES,default=26214400"`
	StaticDir      string        `env:"STATIC_DIR"`
	AllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS,default=0"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST,default=10"`
}

// DatabaseConfig describes the optional durable backing.
type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE,default=true"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=feridas"`
}

// VisionConfig points at the OpenAI-compatible model endpoint.
type VisionConfig struct {
	APIKey              string        `env:"AI_INTEGRATIONS_OPENAI_API_KEY"`
	BaseURL             string        `env:"AI_INTEGRATIONS_OPENAI_BASE_URL,default=https://api.openai.com/v1"`
	Model               string        `env:"AI_MODEL,default=gpt-5"`
	MaxCompletionTokens int           `env:"AI_MAX_COMPLETION_TOKENS,default=2048"`
	Timeout             time.Duration `env:"AI_TIMEOUT,default=120s"`
	AuthMode            string        `env:"AI_AUTH_MODE,default=bearer"`
	APIVersion          string        `env:"AI_API_VERSION"`
	PromptsFile         string        `env:"AI_PROMPTS_FILE"`
}

// ImageConfig selects where submitted images are kept.
type ImageConfig struct {
	Store           string `env:"IMAGE_STORE,default=inline"`
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION,default=us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Prefix          string `env:"S3_PREFIX,default=wounds"`
	PublicBaseURL   string `env:"IMAGE_PUBLIC_BASE_URL"`
}

// Auth modes accepted by VisionConfig.AuthMode.
const (
	AuthBearer   = "bearer"
	AuthAzureKey = "azure-key"
	AuthAzureAD  = "azure-ad"
)

// Image stores accepted by ImageConfig.Store.
const (
	ImageStoreInline = "inline"
	ImageStoreS3     = "s3"
)

const (
	// comparisonModelCalls is how many model calls one comparison makes in
	// sequence: both analyses, then the evolution rating.
	comparisonModelCalls = 3
	// comparisonMargin covers image upload and persistence after the calls.
	comparisonMargin = 15 * time.Second
	// fallbackVisionTimeout matches the httputil client default used when
	// AI_TIMEOUT is zero.
	fallbackVisionTimeout = 30 * time.Second
)

// Load reads .env (when present) and decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Vision.AuthMode = strings.ToLower(strings.TrimSpace(c.Vision.AuthMode))
	c.Vision.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vision.BaseURL), "/")
	c.Images.Store = strings.ToLower(strings.TrimSpace(c.Images.Store))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
}

// Validate rejects settings the runtime cannot act on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}
	switch c.Vision.AuthMode {
	case AuthBearer, AuthAzureKey, AuthAzureAD:
	default:
		return fmt.Errorf("unknown AI_AUTH_MODE %q", c.Vision.AuthMode)
	}
	switch c.Images.Store {
	case ImageStoreInline, ImageStoreS3:
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q", c.Images.Store)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format)
	}
	if c.Vision.MaxCompletionTokens <= 0 {
		return fmt.Errorf("AI_MAX_COMPLETION_TOKENS must be positive")
	}
	if w := c.Server.WriteTimeout; w > 0 && w < c.CompareBudget() {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT %s is shorter than a comparison can take (%s for AI_TIMEOUT %s)",
			w, c.CompareBudget(), c.Vision.Timeout)
	}
	return nil
}

// CompareBudget is the longest a comparison request can run: three
// sequential model calls each bounded by AI_TIMEOUT, plus storage.
func (c *Config) CompareBudget() time.Duration {
	timeout := c.Vision.Timeout
	if timeout <= 0 {
		timeout = fallbackVisionTimeout
	}
	return comparisonModelCalls*timeout + comparisonMargin
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Origins splits CORS_ALLOWED_ORIGINS on commas.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
