package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Input     InputConfig
	Output    OutputConfig
	Browser   BrowserConfig
	Timing    TimingConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Jobs      JobsConfig
	Log       LogConfig
}

// InputConfig locates the symbol list.
type InputConfig struct {
	// Path is a .csv, .xlsx or plain line-per-symbol file.
	Path string // default: "src/main/resources/stocks_list.csv"
}

// OutputConfig locates the spreadsheet written at the end of a run.
type OutputConfig struct {
	Path string // default: "stock_prices_output.xlsx"
}

// BrowserConfig controls how a browser session is acquired.
type BrowserConfig struct {
	// Engine selects the session implementation: "rod" or "http".
	Engine string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	UserAgent    string
	WindowWidth  int // default: 1920
	WindowHeight int // default: 1080

	// Stealth injects navigator.webdriver masking before navigation.
	Stealth bool // default: true

	// NavigationTimeout bounds one page load of the rod session.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists resource types the rod session drops.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool // default: true

	// HTTPRatePerSecond paces navigations of the http engine.
	HTTPRatePerSecond float64 // default: 1
}

// TimingConfig holds the fixed waits of the resolution pipeline.
type TimingConfig struct {
	// Settle is the pause after each navigation before probing.
	Settle time.Duration // default: 5s

	// Probe bounds the wait for a single locator.
	Probe time.Duration // default: 15s

	// Politeness is the pause between two symbols.
	Politeness time.Duration // default: 3s
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// RateLimitConfig controls per-client rate limiting on the API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// CacheConfig controls the resolved quote cache used by the API.
type CacheConfig struct {
	MaxEntries int           // default: 1000
	TTL        time.Duration // default: 1h
}

// JobsConfig controls the quote job queue of the API.
type JobsConfig struct {
	// MaxSymbols caps the symbols accepted by one job.
	MaxSymbols int // default: 50

	// QueueSize is the number of jobs that may wait for the worker.
	QueueSize int // default: 16

	// Retention is how long finished jobs stay queryable.
	Retention time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Default returns the configuration with every field at its default value.
func Default() *Config {
	return &Config{
		Input:  InputConfig{Path: "src/main/resources/stocks_list.csv"},
		Output: OutputConfig{Path: "stock_prices_output.xlsx"},
		Browser: BrowserConfig{
			Engine:               "rod",
			Headless:             true,
			NoSandbox:            true,
			UserAgent:            defaultUserAgent,
			WindowWidth:          1920,
			WindowHeight:         1080,
			Stealth:              true,
			NavigationTimeout:    30 * time.Second,
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
			BlockAds:             true,
			HTTPRatePerSecond:    1,
		},
		Timing: TimingConfig{
			Settle:     5 * time.Second,
			Probe:      15 * time.Second,
			Politeness: 3 * time.Second,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
			TTL:        time.Hour,
		},
		Jobs: JobsConfig{
			MaxSymbols: 50,
			QueueSize:  16,
			Retention:  time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	d := Default()
	return &Config{
		Input: InputConfig{
			Path: envOr("PRICEWATCH_INPUT", d.Input.Path),
		},
		Output: OutputConfig{
			Path: envOr("PRICEWATCH_OUTPUT", d.Output.Path),
		},
		Browser: BrowserConfig{
			Engine:               envOr("PRICEWATCH_ENGINE", d.Browser.Engine),
			Headless:             envBoolOr("PRICEWATCH_HEADLESS", d.Browser.Headless),
			NoSandbox:            envBoolOr("PRICEWATCH_NO_SANDBOX", d.Browser.NoSandbox),
			BrowserBin:           os.Getenv("PRICEWATCH_BROWSER_BIN"),
			UserAgent:            envOr("PRICEWATCH_USER_AGENT", d.Browser.UserAgent),
			WindowWidth:          envIntOr("PRICEWATCH_WINDOW_WIDTH", d.Browser.WindowWidth),
			WindowHeight:         envIntOr("PRICEWATCH_WINDOW_HEIGHT", d.Browser.WindowHeight),
			Stealth:              envBoolOr("PRICEWATCH_STEALTH", d.Browser.Stealth),
			NavigationTimeout:    envDurationOr("PRICEWATCH_NAV_TIMEOUT", d.Browser.NavigationTimeout),
			BlockedResourceTypes: envSliceOr("PRICEWATCH_BLOCKED_RESOURCES", d.Browser.BlockedResourceTypes),
			BlockAds:             envBoolOr("PRICEWATCH_BLOCK_ADS", d.Browser.BlockAds),
			HTTPRatePerSecond:    envFloatOr("PRICEWATCH_HTTP_RPS", d.Browser.HTTPRatePerSecond),
		},
		Timing: TimingConfig{
			Settle:     envDurationOr("PRICEWATCH_SETTLE_DELAY", d.Timing.Settle),
			Probe:      envDurationOr("PRICEWATCH_PROBE_TIMEOUT", d.Timing.Probe),
			Politeness: envDurationOr("PRICEWATCH_POLITENESS_DELAY", d.Timing.Politeness),
		},
		Server: ServerConfig{
			Host: envOr("PRICEWATCH_HOST", d.Server.Host),
			Port: envIntOr("PRICEWATCH_PORT", d.Server.Port),
			Mode: envOr("PRICEWATCH_MODE", d.Server.Mode),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEWATCH_RATE_RPS", d.RateLimit.RequestsPerSecond),
			Burst:             envIntOr("PRICEWATCH_RATE_BURST", d.RateLimit.Burst),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PRICEWATCH_CACHE_MAX_ENTRIES", d.Cache.MaxEntries),
			TTL:        envDurationOr("PRICEWATCH_CACHE_TTL", d.Cache.TTL),
		},
		Jobs: JobsConfig{
			MaxSymbols: envIntOr("PRICEWATCH_JOB_MAX_SYMBOLS", d.Jobs.MaxSymbols),
			QueueSize:  envIntOr("PRICEWATCH_JOB_QUEUE", d.Jobs.QueueSize),
			Retention:  envDurationOr("PRICEWATCH_JOB_RETENTION", d.Jobs.Retention),
		},
		Log: LogConfig{
			Level:  envOr("PRICEWATCH_LOG_LEVEL", d.Log.Level),
			Format: envOr("PRICEWATCH_LOG_FORMAT", d.Log.Format),
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case "rod", "http":
	default:
		return fmt.Errorf("config: unknown browser engine %q", c.Browser.Engine)
	}
	if c.Timing.Settle < 0 || c.Timing.Politeness < 0 {
		return fmt.Errorf("config: timings must not be negative")
	}
	if c.Timing.Probe <= 0 {
		return fmt.Errorf("config: probe timeout must be positive")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("config: navigation timeout must be positive")
	}
	if c.Input.Path == "" || c.Output.Path == "" {
		return fmt.Errorf("config: input and output paths are required")
	}
	if c.Jobs.MaxSymbols < 1 {
		return fmt.Errorf("config: jobs.MaxSymbols must be at least 1")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
