package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string

	// ActiveProvider is "direct" or "queue". Per-provider keys may also
	// be supplied at runtime (bot /key command, web X-Api-Key header);
	// those beat the environment ones.
	ActiveProvider string
	GeminiAPIKey   string
	QueueAPIKey    string

	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiModel      string

	QueueBaseURL  string
	QueueModel    string
	ImageProxyURL string

	Resolution string

	LogLevel   string
	Debug      bool
	PreferIPv4 bool

	WebAddr string

	MaxConcurrent  int
	RequestTimeout time.Duration
	HTTPTimeout    time.Duration

	PollInterval    time.Duration
	MaxPollAttempts int
	PaceDelay       time.Duration

	MediaGroupDebounce time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		ActiveProvider:     strings.ToLower(strings.TrimSpace(getEnv("ACTIVE_PROVIDER", "direct"))),
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiModel:        strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash-image")),
		QueueBaseURL:       strings.TrimSpace(getEnv("QUEUE_BASE_URL", "https://api.302.ai")),
		QueueModel:         strings.TrimSpace(getEnv("QUEUE_MODEL", "nano-banana")),
		ImageProxyURL:      strings.TrimSpace(os.Getenv("IMAGE_PROXY_URL")),
		Resolution:         strings.TrimSpace(getEnv("RESOLUTION", "2K")),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 420)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 2)) * time.Second,
		MaxPollAttempts:    getEnvInt("MAX_POLL_ATTEMPTS", 60),
		PaceDelay:          time.Duration(getEnvInt("PACE_DELAY_MS", 1000)) * time.Millisecond,
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.QueueAPIKey = strings.TrimSpace(os.Getenv("QUEUE_API_KEY"))

	if cfg.ActiveProvider != "direct" && cfg.ActiveProvider != "queue" {
		return Config{}, fmt.Errorf("ACTIVE_PROVIDER must be \"direct\" or \"queue\", got %q", cfg.ActiveProvider)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 420 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPollAttempts < 1 {
		cfg.MaxPollAttempts = 60
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
