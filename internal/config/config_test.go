package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Validate_Success(t *testing.T) {
	cfg := &Config{
		Redis: RedisConfig{Addr: "localhost:6379"},
		Store: StoreConfig{Path: "jurni.db"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_MissingRedisAddr(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{Path: "jurni.db"},
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing REDIS_ADDR")
	}
}

func TestConfig_Validate_MissingStorePath(t *testing.T) {
	cfg := &Config{
		Redis: RedisConfig{Addr: "localhost:6379"},
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing STORE_PATH")
	}
}

func TestConfig_ValidateWorker(t *testing.T) {
	cfg := &Config{
		Gemini:   GeminiConfig{APIKey: "gem-key"},
		Geocoder: GeocoderConfig{APIKey: "maps-key"},
	}
	if err := cfg.ValidateWorker(); err != nil {
		t.Errorf("ValidateWorker() should pass, got %v", err)
	}

	cfg.Gemini.APIKey = ""
	if err := cfg.ValidateWorker(); err == nil {
		t.Error("ValidateWorker() should fail for missing GEMINI_API_KEY")
	}

	cfg.Gemini.APIKey = "gem-key"
	cfg.Geocoder.APIKey = ""
	if err := cfg.ValidateWorker(); err == nil {
		t.Error("ValidateWorker() should fail for missing GOOGLE_MAPS_API_KEY")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("default port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Redis.QueueKey != "jurni:jobs" {
		t.Errorf("default queue key = %q", cfg.Redis.QueueKey)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelay != time.Second || cfg.Retry.Multiplier != 2 {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.RateLimits.Download.MaxCalls != 10 || cfg.RateLimits.Download.Window != time.Minute {
		t.Errorf("unexpected download rate limit defaults: %+v", cfg.RateLimits.Download)
	}
	if cfg.RateLimits.Geocode.MaxCalls != 50 {
		t.Errorf("unexpected geocode rate limit defaults: %+v", cfg.RateLimits.Geocode)
	}
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("default model = %q", cfg.Gemini.Model)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9001
redis:
  addr: "redis.internal:6379"
rate_limits:
  download:
    max_calls: 2
    window: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.RateLimits.Download.MaxCalls != 2 || cfg.RateLimits.Download.Window != 30*time.Second {
		t.Errorf("download rate limit = %+v", cfg.RateLimits.Download)
	}
	// Unset dependencies still get defaults
	if cfg.RateLimits.Analysis.MaxCalls != 15 {
		t.Errorf("analysis rate limit should default, got %+v", cfg.RateLimits.Analysis)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("REDIS_ADDR", "override:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "override:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should fail for missing config file")
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8090}
	if got := cfg.Address(); got != "127.0.0.1:8090" {
		t.Errorf("Address() = %q, want 127.0.0.1:8090", got)
	}
}
