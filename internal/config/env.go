package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

// StorageConfig holds the on-disk layout and ingestion limits.
type StorageConfig struct {
	DataDir        string
	UploadDir      string
	MetadataDBPath string
	MaxUploadBytes int64
	SampleRows     int
}

// Config holds all configuration.
type Config struct {
	ServiceName string
	Server      ServerConfig
	Log         LogConfig
	Storage     StorageConfig
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() (*Config, error) {
	// .env is optional; variables already present in the environment win.
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")

	return &Config{
		ServiceName: appName,
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8000"),
			Env:             env,
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: env,
			ServiceName: appName,
		},
		Storage: StorageConfig{
			DataDir:        GetDataDir(),
			UploadDir:      GetUploadDir(),
			MetadataDBPath: GetMetadataDBPath(),
			MaxUploadBytes: getEnvAsInt64("UPLOAD_MAX_BYTES", 64<<20),
			SampleRows:     getEnvAsInt("SCHEMA_SAMPLE_ROWS", 10),
		},
	}, nil
}

// LogFields returns the configuration in a zap-friendly form.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("upload_dir", c.Storage.UploadDir),
		zap.String("metadata_db", c.Storage.MetadataDBPath),
		zap.Int64("max_upload_bytes", c.Storage.MaxUploadBytes),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
