package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the process configuration read from the environment and .env.
type Config struct {
	ServerPort      int
	DebugMode       bool
	DataDir         string
	HistoryEnabled  bool
	DemoDelay       time.Duration
	UpstreamTimeout time.Duration

	// Base URL overrides for running behind a proxy. Empty means the public endpoint.
	PerplexityBaseURL string
	OpenAIBaseURL     string
	ClaudeBaseURL     string
}

const (
	DefaultServerPort      = 8080
	DefaultDemoDelay       = 1200 * time.Millisecond
	DefaultUpstreamTimeout = 120 * time.Second
)

var Value = Defaults()

func Defaults() Config {
	return Config{
		ServerPort:      DefaultServerPort,
		HistoryEnabled:  true,
		DemoDelay:       DefaultDemoDelay,
		UpstreamTimeout: DefaultUpstreamTimeout,
	}
}

// LoadEnv reads .env (if present) and then the process environment into Value.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}
	Value = FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) Config {
	cfg := Defaults()

	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			cfg.ServerPort = port
		} else {
			logger.Warn("Invalid SERVER_PORT, using default", zap.String("value", v))
		}
	}
	cfg.DebugMode = parseBool(get("DEBUG_MODE"), false)
	cfg.HistoryEnabled = parseBool(get("HISTORY_ENABLED"), cfg.HistoryEnabled)
	cfg.DataDir = get("DATA_DIR")

	if v := get("DEMO_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.DemoDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := get("UPSTREAM_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.UpstreamTimeout = time.Duration(sec) * time.Second
		}
	}

	cfg.PerplexityBaseURL = get("PERPLEXITY_BASE_URL")
	cfg.OpenAIBaseURL = get("OPENAI_BASE_URL")
	cfg.ClaudeBaseURL = get("CLAUDE_BASE_URL")
	return cfg
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}
