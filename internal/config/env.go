package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type envSpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []envSpec{
	{
		env: "TTYV_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "TTYV_API_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
	},
	{
		env: "GEMINI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
	},
	{
		env: "TTYV_GEMINI_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
	},
	{
		env: "TTYV_EMBED_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.EmbedModel = v.(string) },
	},
	{
		env: "TTYV_GEMINI_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
	},
	{
		env: "TTYV_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.DataDir = v.(string) },
	},
	{
		env: "TTYV_TOP_K", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Index.TopK = v.(int) },
	},
	{
		env: "TTYV_WORKERS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Jobs.Workers = v.(int) },
	},
	{
		env: "TTYV_QUEUE_SIZE", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Jobs.QueueSize = v.(int) },
	},
	{
		env: "TTYV_CALL_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Jobs.CallTimeout = v.(time.Duration) },
	},
	{
		env: "TTYV_MAX_JOBS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Jobs.MaxJobs = v.(int) },
	},
	{
		env: "TTYV_MAX_SESSIONS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Jobs.MaxSessions = v.(int) },
	},
	{
		env: "TTYV_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
