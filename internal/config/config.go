package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type StorageConfig struct {
	Driver string
	Path   string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	Enabled      bool
	Username     string
	Password     string
	PasswordHash string
	AccessSecret string
	SessionTTL   time.Duration
	SessionStore string
	RedisURL     string
}

// UsingDefaultCredentials reports whether the admin account still uses the
// built-in admin/admin login.
func (a AuthConfig) UsingDefaultCredentials() bool {
	return a.PasswordHash == "" && a.Username == "admin" && a.Password == "admin"
}

type ClientConfig struct {
	APIURL   string
	CacheDir string
	Debounce time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Storage     StorageConfig
	DB          DBConfig
	Auth        AuthConfig
	Client      ClientConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 3000)
	v.SetDefault("STORAGE_DRIVER", StorageFile)
	v.SetDefault("DATABASE_PATH", "data/state.json")
	v.SetDefault("AUTH_ENABLED", true)
	v.SetDefault("AUTH_USERNAME", "admin")
	v.SetDefault("AUTH_PASSWORD", "admin")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("MAX_BODY_BYTES", 5<<20)
	v.SetDefault("FLEET_API_URL", "http://localhost:3000")
	v.SetDefault("FLEET_CACHE_DIR", defaultCacheDir())
	v.SetDefault("SYNC_DEBOUNCE", 300*time.Millisecond)

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			Enabled:      v.GetBool("AUTH_ENABLED"),
			Username:     v.GetString("AUTH_USERNAME"),
			Password:     v.GetString("AUTH_PASSWORD"),
			PasswordHash: v.GetString("AUTH_PASSWORD_HASH"),
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			SessionTTL:   v.GetDuration("SESSION_TTL"),
			SessionStore: strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
			RedisURL:     v.GetString("REDIS_URL"),
		},
		Client: ClientConfig{
			APIURL:   strings.TrimRight(v.GetString("FLEET_API_URL"), "/"),
			CacheDir: v.GetString("FLEET_CACHE_DIR"),
			Debounce: v.GetDuration("SYNC_DEBOUNCE"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}

	switch cfg.Storage.Driver {
	case StorageFile, StorageSQLite:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required for %s storage", cfg.Storage.Driver)
		}
	case StoragePostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.Username == "" {
			return fmt.Errorf("AUTH_USERNAME is required when auth is enabled")
		}
		if cfg.Auth.Password == "" && cfg.Auth.PasswordHash == "" {
			return fmt.Errorf("AUTH_PASSWORD or AUTH_PASSWORD_HASH is required when auth is enabled")
		}
	}

	switch cfg.Auth.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.Auth.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis sessions")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", cfg.Auth.SessionStore)
	}

	if cfg.Auth.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	if cfg.Client.Debounce < 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "fleet-admin")
	}
	return ".fleet-admin"
}
