package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/errx"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Notifx    NotifxConfig
	Jobx      JobxConfig
	Dispatch  DispatchConfig
	Reporting ReportingConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	CORSOrigins  string
	ServiceToken string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns host:port for go-redis.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type StorageConfig struct {
	Mode      string
	UploadDir string
	Bucket    string
	Region    string
}

var configErrors = errx.NewRegistry("CONFIG")

var ErrInvalidConfig = configErrors.Register("INVALID", errx.TypeValidation, 0, "Invalid configuration")

// Load reads every section from the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Server:    loadServerConfig(),
		Redis:     loadRedisConfig(),
		Database:  loadDatabaseConfig(),
		Storage:   loadStorageConfig(),
		Notifx:    loadNotifxConfig(),
		Jobx:      loadJobxConfig(),
		Dispatch:  loadDispatchConfig(),
		Reporting: loadReportingConfig(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	if err := c.Dispatch.validate(); err != nil {
		return err
	}
	if err := c.Jobx.validate(); err != nil {
		return err
	}
	switch c.Storage.Mode {
	case "local", "s3":
	default:
		return configErrors.New(ErrInvalidConfig).
			WithDetail("field", "STORAGE_MODE").
			WithDetail("reason", "must be local or s3")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
		ServiceToken: getEnv("API_SERVICE_TOKEN", ""),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         getEnvBool("DB_ENABLED", true),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		Name:            getEnv("DB_NAME", "mailflow"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Mode:      strings.ToLower(getEnv("STORAGE_MODE", "local")),
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		Bucket:    getEnv("AWS_BUCKET", "mailflow-reports"),
		Region:    getEnv("AWS_REGION", "us-east-1"),
	}
}

// ---------------------------------------------------------------------------
// env helpers
// ---------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("1500ms") or a bare integer of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
