// Package config reads process configuration from the environment once at
// start-up. Nothing below cmd/ reads the environment directly.
package config

import (
	"os"
	"strings"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageS3       = "s3"
)

type Config struct {
	Port     string
	LogLevel string

	Storage   StorageConfig
	Generator GeneratorConfig
	Telemetry TelemetryConfig

	MetricsToken string
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	SQLitePath  string
	PostgresDSN string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3Prefix    string
}

type GeneratorConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

func Load() Config {
	return Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getenv("CHEMBASE_STORAGE", StorageFile)),
			DataDir:     getenv("CHEMBASE_DATA_DIR", "./data"),
			SQLitePath:  getenv("CHEMBASE_SQLITE_PATH", "./data/chembase.db"),
			PostgresDSN: getenv("CHEMBASE_POSTGRES_DSN", "postgres://localhost/chembase?sslmode=disable"),
			S3Bucket:    os.Getenv("CHEMBASE_S3_BUCKET"),
			S3Region:    getenv("CHEMBASE_S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("CHEMBASE_S3_ENDPOINT"),
			S3PathStyle: strings.EqualFold(os.Getenv("CHEMBASE_S3_PATH_STYLE"), "true"),
			S3Prefix:    os.Getenv("CHEMBASE_S3_PREFIX"),
		},
		Generator: GeneratorConfig{
			APIKey:  getenv("API_KEY", os.Getenv("GEMINI_API_KEY")),
			Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getenv("OTEL_SERVICE_NAME", "chembase"),
		},
		MetricsToken: os.Getenv("METRICS_TOKEN"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
