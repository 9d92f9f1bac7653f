package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Firebase   FirebaseConfig
	Cloudinary CloudinaryConfig
	Sync       SyncConfig
	Client     ClientConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	// RateLimit is requests per RateWindow per caller.
	RateLimit  int
	RateWindow time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// SyncConfig tunes the client-side realtime controllers.
type SyncConfig struct {
	FetchLimit       int           // bulk fetch window for notifications
	ReadReceiptDelay time.Duration // settle time before a batched read receipt
	PendingWindow    time.Duration // how long an in-flight send may match an echo by content
	OfflineTimeout   time.Duration // bound on the final offline presence push
}

// ClientConfig points a sync client at the backend.
type ClientConfig struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
}

// LoadDotEnv reads .env files (".env" when none are named) into the environment.
// A missing file is not an error; a malformed or unreadable one is.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         env("PORT", "8099"),
			Env:          env("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			RateLimit:    envInt("RATE_LIMIT", 300),
			RateWindow:   60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "marketsync:marketsync@tcp(localhost:3306)/marketsync?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: env("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: envDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
			Issuer:       "marketsync",
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    env("CLOUDINARY_FOLDER", "marketsync/chat"),
		},
		Sync: SyncConfig{
			FetchLimit:       envInt("SYNC_FETCH_LIMIT", 50),
			ReadReceiptDelay: envDuration("SYNC_READ_RECEIPT_DELAY", time.Second),
			PendingWindow:    envDuration("SYNC_PENDING_WINDOW", 10*time.Second),
			OfflineTimeout:   envDuration("SYNC_OFFLINE_TIMEOUT", 3*time.Second),
		},
		Client: ClientConfig{
			BaseURL:        env("MARKETSYNC_URL", "http://localhost:8099"),
			AccessToken:    os.Getenv("MARKETSYNC_TOKEN"),
			RequestTimeout: envDuration("MARKETSYNC_REQUEST_TIMEOUT", 10*time.Second),
			ReconnectMin:   envDuration("MARKETSYNC_RECONNECT_MIN", 500*time.Millisecond),
			ReconnectMax:   envDuration("MARKETSYNC_RECONNECT_MAX", 30*time.Second),
		},
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
