package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultChatModel       = "gemini-2.5-flash"
	DefaultPollInterval    = time.Second
	DefaultMaxIngestWait   = 5 * time.Minute
	DefaultMaxUploadBytes  = 100 << 20
	DefaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/"
	DefaultFileListPageLen = 100
)

// Config is built once at startup and never mutated afterwards. Components
// receive what they need from it through their constructors.
type Config struct {
	// GeminiAPIKey is the fallback credential used when a request does not
	// carry its own. It may be empty, in which case every request must.
	GeminiAPIKey  string
	GeminiBaseURL string

	HTTPPort  string
	LogLevel  string
	LogFormat string
	LogFile   string

	ChatModel             string
	ChatSystemInstruction string

	StagingDir         string
	PollInterval       time.Duration
	MaxIngestWait      time.Duration
	MaxUploadBytes     int64
	FileListPageLength int
}

// Load reads the environment, after merging a .env file if one exists.
func Load() (*Config, bool, error) {
	dotenvLoaded := godotenv.Load() == nil

	cfg := &Config{
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogFile:               getEnv("LOG_FILE", ""),
		ChatModel:             getEnv("CHAT_MODEL", DefaultChatModel),
		ChatSystemInstruction: getEnv("CHAT_SYSTEM_INSTRUCTION", ""),
		StagingDir:            getEnv("STAGING_DIR", os.TempDir()),
		FileListPageLength:    getEnvAsInt("FILE_LIST_PAGE_SIZE", DefaultFileListPageLen),
		MaxUploadBytes:        int64(getEnvAsInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
	}

	var err error
	if cfg.PollInterval, err = getEnvAsDuration("INGEST_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, dotenvLoaded, err
	}
	if cfg.MaxIngestWait, err = getEnvAsDuration("INGEST_MAX_WAIT", DefaultMaxIngestWait); err != nil {
		return nil, dotenvLoaded, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, dotenvLoaded, err
	}
	return cfg, dotenvLoaded, nil
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("INGEST_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.MaxIngestWait < c.PollInterval {
		return fmt.Errorf("INGEST_MAX_WAIT (%s) must not be shorter than INGEST_POLL_INTERVAL (%s)", c.MaxIngestWait, c.PollInterval)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.StagingDir == "" {
		return fmt.Errorf("STAGING_DIR must not be empty")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
