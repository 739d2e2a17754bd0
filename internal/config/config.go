// Package config assembles the service configuration from defaults, an
// optional .env file, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/kalambet/ttyv/internal/gemini"
)

type Config struct {
	Server ServerConfig
	Gemini GeminiConfig
	Index  IndexConfig
	Jobs   JobsConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string // optional; guards cache management routes when set
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string
}

type IndexConfig struct {
	DataDir string
	TopK    int
}

type JobsConfig struct {
	Workers     int
	QueueSize   int
	CallTimeout time.Duration
	MaxJobs     int
	MaxSessions int
}

type LogConfig struct {
	Level string // debug, info, warn or error
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Gemini: GeminiConfig{
			Model:      "gemini-1.5-flash",
			EmbedModel: "text-embedding-004",
			BaseURL:    gemini.DefaultBaseURL,
		},
		Index: IndexConfig{
			DataDir: defaultDataDir(),
			TopK:    12,
		},
		Jobs: JobsConfig{
			Workers:     4,
			QueueSize:   64,
			CallTimeout: 60 * time.Second,
			MaxJobs:     256,
			MaxSessions: 512,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ttyv-data"
	}
	return filepath.Join(home, ".ttyv")
}

// Load reads configuration from a .env file (if present) and the
// environment. A missing .env is not an error; real deployments set the
// environment directly.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural sanity. It does not require the Gemini API
// key: the server can come up unconfigured and reports that through the
// health endpoint.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: port %d out of range", c.Server.Port)
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be at least 1, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize < 1 {
		return fmt.Errorf("invalid config: queue size must be at least 1, got %d", c.Jobs.QueueSize)
	}
	if c.Jobs.CallTimeout <= 0 {
		return fmt.Errorf("invalid config: call timeout must be positive, got %s", c.Jobs.CallTimeout)
	}
	if c.Jobs.MaxJobs < 1 {
		return fmt.Errorf("invalid config: max jobs must be at least 1, got %d", c.Jobs.MaxJobs)
	}
	if c.Jobs.MaxSessions < 1 {
		return fmt.Errorf("invalid config: max sessions must be at least 1, got %d", c.Jobs.MaxSessions)
	}
	if c.Index.TopK < 1 {
		return fmt.Errorf("invalid config: top_k must be at least 1, got %d", c.Index.TopK)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: unknown log level %q", c.Log.Level)
	}
	return nil
}

// GeminiConfigured reports whether an API key is available for
// generation and embedding calls.
func (c Config) GeminiConfigured() bool {
	return c.Gemini.APIKey != ""
}
