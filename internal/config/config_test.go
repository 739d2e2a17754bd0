package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every known variable so ambient environment does not
// leak into assertions. t.Setenv restores the originals.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("Gemini.Model = %q, want %q", cfg.Gemini.Model, "gemini-1.5-flash")
	}
	if cfg.Gemini.EmbedModel != "text-embedding-004" {
		t.Errorf("Gemini.EmbedModel = %q, want %q", cfg.Gemini.EmbedModel, "text-embedding-004")
	}
	if cfg.Gemini.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("Gemini.BaseURL = %q", cfg.Gemini.BaseURL)
	}
	if cfg.Index.TopK != 12 {
		t.Errorf("Index.TopK = %d, want 12", cfg.Index.TopK)
	}
	if cfg.Index.DataDir == "" {
		t.Error("Index.DataDir is empty")
	}
	if cfg.Jobs.Workers != 4 {
		t.Errorf("Jobs.Workers = %d, want 4", cfg.Jobs.Workers)
	}
	if cfg.Jobs.QueueSize != 64 {
		t.Errorf("Jobs.QueueSize = %d, want 64", cfg.Jobs.QueueSize)
	}
	if cfg.Jobs.CallTimeout != 60*time.Second {
		t.Errorf("Jobs.CallTimeout = %s, want 60s", cfg.Jobs.CallTimeout)
	}
	if cfg.Jobs.MaxJobs != 256 {
		t.Errorf("Jobs.MaxJobs = %d, want 256", cfg.Jobs.MaxJobs)
	}
	if cfg.Jobs.MaxSessions != 512 {
		t.Errorf("Jobs.MaxSessions = %d, want 512", cfg.Jobs.MaxSessions)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.GeminiConfigured() {
		t.Error("GeminiConfigured() = true with no API key")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TTYV_PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TTYV_GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("TTYV_WORKERS", "2")
	t.Setenv("TTYV_CALL_TIMEOUT", "5s")
	t.Setenv("TTYV_DATA_DIR", "/tmp/ttyv-test")
	t.Setenv("TTYV_LOG_LEVEL", "debug")

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "test-key")
	}
	if cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Errorf("Gemini.Model = %q, want %q", cfg.Gemini.Model, "gemini-1.5-pro")
	}
	if cfg.Jobs.Workers != 2 {
		t.Errorf("Jobs.Workers = %d, want 2", cfg.Jobs.Workers)
	}
	if cfg.Jobs.CallTimeout != 5*time.Second {
		t.Errorf("Jobs.CallTimeout = %s, want 5s", cfg.Jobs.CallTimeout)
	}
	if cfg.Index.DataDir != "/tmp/ttyv-test" {
		t.Errorf("Index.DataDir = %q, want %q", cfg.Index.DataDir, "/tmp/ttyv-test")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if !cfg.GeminiConfigured() {
		t.Error("GeminiConfigured() = false with API key set")
	}
}

func TestEnvOverrides_MalformedValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TTYV_PORT", "not-a-number")
	t.Setenv("TTYV_CALL_TIMEOUT", "sixty seconds")

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
	if cfg.Jobs.CallTimeout != 60*time.Second {
		t.Errorf("Jobs.CallTimeout = %s, want default 60s", cfg.Jobs.CallTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"no workers", func(c *Config) { c.Jobs.Workers = 0 }, "workers"},
		{"zero queue", func(c *Config) { c.Jobs.QueueSize = 0 }, "queue"},
		{"negative timeout", func(c *Config) { c.Jobs.CallTimeout = -time.Second }, "timeout"},
		{"zero max jobs", func(c *Config) { c.Jobs.MaxJobs = 0 }, "max jobs"},
		{"zero sessions", func(c *Config) { c.Jobs.MaxSessions = 0 }, "max sessions"},
		{"zero top_k", func(c *Config) { c.Index.TopK = 0 }, "top_k"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_AppliesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TTYV_PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want 8081", cfg.Server.Port)
	}
}
