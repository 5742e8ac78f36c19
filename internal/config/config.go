package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Remote API
	LikerLandAPIURL      string
	LikeCoAPIURL         string
	APITimeout           time.Duration
	APIRateLimit         float64 // リクエスト/秒
	APIRateBurst         int
	APIUserAgent         string
	DeviceID             string
	APIAllowPrivateHosts bool

	// Snapshot persistence（両方空の場合は永続化を無効にする。両方ある場合はDatabaseURLを優先する）
	DatabaseURL string
	RedisURL    string
	SnapshotTTL time.Duration

	// Worker
	RefreshInterval  time.Duration
	SnapshotInterval time.Duration

	// Rate Limit（リクエスト/分）
	RateLimitGeneral   int
	MutationRatePerMin int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.LikerLandAPIURL = os.Getenv("LIKERLAND_API_URL")
	if cfg.LikerLandAPIURL == "" {
		missing = append(missing, "LIKERLAND_API_URL")
	}

	cfg.LikeCoAPIURL = os.Getenv("LIKECO_API_URL")
	if cfg.LikeCoAPIURL == "" {
		missing = append(missing, "LIKECO_API_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.SnapshotTTL = getEnvDuration("SNAPSHOT_TTL", 0)
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.APIRateLimit = getEnvFloat("API_RATE_LIMIT", 5)
	cfg.APIRateBurst = getEnvInt("API_RATE_BURST", 10)
	cfg.APIUserAgent = getEnvString("API_USER_AGENT", "likereader/1.0")
	cfg.DeviceID = getEnvString("DEVICE_ID", "")
	cfg.APIAllowPrivateHosts = getEnvBool("API_ALLOW_PRIVATE_HOSTS", false)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute)
	cfg.SnapshotInterval = getEnvDuration("SNAPSHOT_INTERVAL", time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.MutationRatePerMin = getEnvInt("MUTATION_RATE_PER_MIN", 60)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// PersistenceEnabled はスナップショット永続化が有効かを返す。
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != "" || c.RedisURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
