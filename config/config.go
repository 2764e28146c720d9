package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Capture   CaptureConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Webhook   WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// QueueSize is the number of render jobs that may wait for the browser.
	QueueSize int // default: 16
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy URL for the browser and the fetcher.
	Proxy string

	// Stealth injects anti-automation-detection scripts before navigation.
	Stealth bool // default: false

	// BlockAds aborts requests to well-known ad and tracking hosts.
	BlockAds bool // default: false
}

// CaptureConfig controls how a page is brought to a stable state.
type CaptureConfig struct {
	// NavigationTimeout bounds navigation plus network idle wait.
	// Zero means no limit.
	NavigationTimeout time.Duration // default: 60s

	// IdleWindow is how long the network must stay quiet.
	IdleWindow time.Duration // default: 500ms

	// ScrollStep is the auto-scroll increment in pixels.
	ScrollStep int // default: 50

	// ScrollInterval is the delay between scroll increments.
	ScrollInterval time.Duration // default: 100ms

	// SettleDelay is the pause after reaching the bottom of the page.
	SettleDelay time.Duration // default: 500ms

	// RevealSelectors lists elements forced visible before capture
	// (e.g. footers that only appear on scroll).
	RevealSelectors []string

	// RemoveOverlays strips fixed cookie banners and modal overlays that
	// would otherwise cover screenshots and PDFs.
	RemoveOverlays bool // default: false

	// Throttle enables network condition emulation.
	Throttle bool // default: false

	// Latency is the emulated round-trip latency.
	Latency time.Duration // default: 40ms

	// DownloadKbps and UploadKbps are the emulated throughput limits.
	DownloadKbps int // default: 1600
	UploadKbps   int // default: 750

	// ImageFetchTimeout bounds each image download of the inliner.
	ImageFetchTimeout time.Duration // default: 15s
}

// OutputConfig holds run defaults that the CLI and config file may override.
type OutputConfig struct {
	Dir     string   // default: "./output"
	Formats []string // default: ["html"]
	Width   int      // default: 1024
	CSV     bool     // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the inlined image cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached images.
	MaxEntries int // default: 512

	// TTL is how long a cached image stays valid.
	TTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      envOr("PRERENDER_HOST", "0.0.0.0"),
			Port:      envIntOr("PRERENDER_PORT", 8080),
			Mode:      envOr("PRERENDER_MODE", "release"),
			QueueSize: envIntOr("PRERENDER_QUEUE_SIZE", 16),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PRERENDER_HEADLESS", true),
			NoSandbox:  envBoolOr("PRERENDER_NO_SANDBOX", true),
			BrowserBin: os.Getenv("PRERENDER_BROWSER_BIN"),
			Proxy:      os.Getenv("PRERENDER_PROXY"),
			Stealth:    envBoolOr("PRERENDER_STEALTH", false),
			BlockAds:   envBoolOr("PRERENDER_BLOCK_ADS", false),
		},
		Capture: CaptureConfig{
			NavigationTimeout: envDurationOr("PRERENDER_NAV_TIMEOUT", 60*time.Second),
			IdleWindow:        envDurationOr("PRERENDER_IDLE_WINDOW", 500*time.Millisecond),
			ScrollStep:        envIntOr("PRERENDER_SCROLL_STEP", 50),
			ScrollInterval:    envDurationOr("PRERENDER_SCROLL_INTERVAL", 100*time.Millisecond),
			SettleDelay:       envDurationOr("PRERENDER_SETTLE_DELAY", 500*time.Millisecond),
			RevealSelectors:   envSliceOr("PRERENDER_REVEAL_SELECTORS", nil),
			RemoveOverlays:    envBoolOr("PRERENDER_REMOVE_OVERLAYS", false),
			Throttle:          envBoolOr("PRERENDER_THROTTLE", false),
			Latency:           envDurationOr("PRERENDER_THROTTLE_LATENCY", 40*time.Millisecond),
			DownloadKbps:      envIntOr("PRERENDER_THROTTLE_DOWN_KBPS", 1600),
			UploadKbps:        envIntOr("PRERENDER_THROTTLE_UP_KBPS", 750),
			ImageFetchTimeout: envDurationOr("PRERENDER_IMAGE_TIMEOUT", 15*time.Second),
		},
		Output: OutputConfig{
			Dir:     envOr("PRERENDER_OUTPUT", "./output"),
			Formats: envSliceOr("PRERENDER_FORMATS", []string{"html"}),
			Width:   envIntOr("PRERENDER_WIDTH", 1024),
			CSV:     envBoolOr("PRERENDER_CSV", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRERENDER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PRERENDER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRERENDER_RATE_RPS", 2.0),
			Burst:             envIntOr("PRERENDER_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PRERENDER_CACHE_MAX_ENTRIES", 512),
			TTL:        envDurationOr("PRERENDER_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("PRERENDER_LOG_LEVEL", "info"),
			Format: envOr("PRERENDER_LOG_FORMAT", "text"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PRERENDER_WEBHOOK_URL"),
			Secret: os.Getenv("PRERENDER_WEBHOOK_SECRET"),
		},
	}
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
