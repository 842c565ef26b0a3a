package config

import (
	"os"
	"strconv"
)

type Config struct {
	Store    StoreConfig
	Blob     BlobConfig
	Detector DetectorConfig
}

// StoreConfig selects and configures the tag store backend.
type StoreConfig struct {
	Backend  string // "postgres" (default) or "mysql"
	Database DatabaseConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL or MySQL DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// BlobConfig configures the object storage backend holding media files.
type BlobConfig struct {
	Endpoint        string // e.g. https://oss-ap-southeast-2.aliyuncs.com
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	PublicBaseURL   string // base URL for durable object locators (defaults to virtual-hosted endpoint form)
}

// DetectorConfig configures the species detection provider.
type DetectorConfig struct {
	Provider      string // "openai" (default), "gemini" or "none"
	OpenAIToken   string
	GeminiAPIKey  string
	MinConfidence float64 // detections below this are dropped (default 0.5)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDefault reads an environment variable with a fallback value.
func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: envDefault("STORE_BACKEND", "postgres"),
			Database: DatabaseConfig{
				URL:          os.Getenv("DATABASE_URL"),
				MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
				MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			},
		},
		Blob: BlobConfig{
			Endpoint:        os.Getenv("OSS_ENDPOINT"),
			Bucket:          os.Getenv("OSS_BUCKET"),
			AccessKeyID:     os.Getenv("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("OSS_ACCESS_KEY_SECRET"),
			PublicBaseURL:   os.Getenv("OSS_PUBLIC_BASE_URL"),
		},
		Detector: DetectorConfig{
			Provider:      envDefault("DETECTOR_PROVIDER", "openai"),
			OpenAIToken:   os.Getenv("OPENAI_TOKEN"),
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			MinConfidence: envFloat("DETECTOR_MIN_CONFIDENCE", 0.5),
		},
	}
}
