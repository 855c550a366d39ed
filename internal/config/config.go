package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Store      StoreConfig      `yaml:"store"`
	Worker     WorkerConfig     `yaml:"worker"`
	Tools      ToolsConfig      `yaml:"tools"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
	Retry      RetryConfig      `yaml:"retry"`
}

// ServerConfig holds HTTP server configuration for the submission API.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8090"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// RedisConfig holds the inbound queue connection settings.
type RedisConfig struct {
	Addr       string        `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password   string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" envconfig:"REDIS_DB" default:"0"`
	QueueKey   string        `yaml:"queue_key" envconfig:"REDIS_QUEUE_KEY" default:"jurni:jobs"`
	MaxRetries int           `yaml:"max_retries" envconfig:"QUEUE_MAX_RETRIES" default:"3"`
	PopTimeout time.Duration `yaml:"pop_timeout" envconfig:"QUEUE_POP_TIMEOUT" default:"5s"`
}

// StoreConfig holds the persisted store settings.
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"STORE_PATH" default:"jurni.db"`
}

// WorkerConfig holds consumer pool configuration.
type WorkerConfig struct {
	Count           int           `yaml:"count" envconfig:"WORKER_COUNT" default:"4"`
	PromoteInterval time.Duration `yaml:"promote_interval" envconfig:"WORKER_PROMOTE_INTERVAL" default:"1s"`
}

// ToolsConfig holds settings for the external extraction/download tool.
type ToolsConfig struct {
	YtDlpBin        string        `yaml:"ytdlp_bin" envconfig:"YTDLP_BIN" default:"yt-dlp"`
	TempDir         string        `yaml:"temp_dir" envconfig:"TEMP_DIR" default:"/tmp/jurni"`
	ExtractTimeout  time.Duration `yaml:"extract_timeout" envconfig:"EXTRACT_TIMEOUT" default:"2m"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"10m"`
}

// GeminiConfig holds Gemini API configuration.
type GeminiConfig struct {
	APIKey        string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL       string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model         string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"2m"`
	MaxVideoBytes int64         `yaml:"max_video_bytes" envconfig:"GEMINI_MAX_VIDEO_BYTES" default:"20971520"` // 20MB inline limit
}

// GeocoderConfig holds Google Geocoding API configuration.
type GeocoderConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GOOGLE_MAPS_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"GEOCODER_BASE_URL" default:"https://maps.googleapis.com"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GEOCODER_TIMEOUT" default:"15s"`
}

// RateLimitConfig bounds calls to one external dependency over a trailing window.
type RateLimitConfig struct {
	MaxCalls int           `yaml:"max_calls"`
	Window   time.Duration `yaml:"window"`
}

// RateLimitsConfig holds the static per-dependency rate limit windows.
// Each dependency is independent: exhausting one must not stall the others.
type RateLimitsConfig struct {
	Download RateLimitConfig `yaml:"download"`
	Analysis RateLimitConfig `yaml:"analysis"`
	Geocode  RateLimitConfig `yaml:"geocode"`
}

// RetryConfig holds the backoff policy applied around each external call.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" envconfig:"RETRY_INITIAL_DELAY" default:"1s"`
	Multiplier   float64       `yaml:"multiplier" envconfig:"RETRY_MULTIPLIER" default:"2"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.applyRateLimitDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyRateLimitDefaults fills in windows left unset by file and environment.
// envconfig cannot default the repeated RateLimitConfig struct, so the
// defaults live here.
func (c *Config) applyRateLimitDefaults() {
	fill := func(rl *RateLimitConfig, maxCalls int, window time.Duration) {
		if rl.MaxCalls <= 0 {
			rl.MaxCalls = maxCalls
		}
		if rl.Window <= 0 {
			rl.Window = window
		}
	}
	fill(&c.RateLimits.Download, 10, time.Minute)
	fill(&c.RateLimits.Analysis, 15, time.Minute)
	fill(&c.RateLimits.Geocode, 50, time.Minute)
}

// Validate checks configuration shared by both binaries.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	return nil
}

// ValidateWorker checks the keys only the pipeline worker needs.
func (c *Config) ValidateWorker() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Geocoder.APIKey == "" {
		return fmt.Errorf("GOOGLE_MAPS_API_KEY is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
