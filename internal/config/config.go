// Package config loads the application configuration from an optional YAML
// file, applying defaults first and environment variable overrides last.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Blob    BlobConfig    `koanf:"blob"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string `koanf:"driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	PostgresDSN string `koanf:"postgres_dsn"`
}

// BlobConfig selects the blob storage backend.
type BlobConfig struct {
	Driver string   `koanf:"driver"`
	FSRoot string   `koanf:"fs_root"`
	S3     S3Config `koanf:"s3"`
}

// S3Config parameterizes the S3 blob backend. An empty endpoint targets AWS;
// MinIO deployments set Endpoint and PathStyle.
type S3Config struct {
	Region          string `koanf:"region"`
	Bucket          string `koanf:"bucket"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	PathStyle       bool   `koanf:"path_style"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug|info|warn|error
	Format string `koanf:"format"` // json|console
}

// MetricsConfig selects how operation metrics are exported.
type MetricsConfig struct {
	Exporter string `koanf:"exporter"` // prometheus|expvar|none
}

// Load reads the configuration. When path is empty only defaults and
// environment overrides apply; a non-empty path must name a readable YAML
// file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob driver s3 requires a bucket")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Metrics.Exporter {
	case "prometheus", "expvar", "none":
	default:
		return fmt.Errorf("unknown metrics exporter %q", c.Metrics.Exporter)
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "server.host", "0.0.0.0")
	setDefault(k, "server.port", 8080)
	setDefault(k, "server.read_timeout", 10*time.Second)
	setDefault(k, "server.write_timeout", 30*time.Second)
	setDefault(k, "server.shutdown_timeout", 15*time.Second)

	setDefault(k, "storage.driver", "sqlite")
	setDefault(k, "storage.sqlite_path", "careops.db")

	setDefault(k, "blob.driver", "fs")
	setDefault(k, "blob.fs_root", "./careops-blobs")
	setDefault(k, "blob.s3.region", "ap-southeast-2")

	setDefault(k, "log.level", "info")
	setDefault(k, "log.format", "json")

	setDefault(k, "metrics.exporter", "prometheus")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := envString("CAREOPS_SERVER_HOST", ""); host != "" {
		k.Set("server.host", host)
	}
	if port := envInt("CAREOPS_SERVER_PORT", 0); port > 0 {
		k.Set("server.port", port)
	}

	if driver := envString("CAREOPS_STORAGE_DRIVER", ""); driver != "" {
		k.Set("storage.driver", driver)
	}
	if path := envString("CAREOPS_SQLITE_PATH", ""); path != "" {
		k.Set("storage.sqlite_path", path)
	}
	if dsn := envString("CAREOPS_POSTGRES_DSN", ""); dsn != "" {
		k.Set("storage.postgres_dsn", dsn)
	}

	if driver := envString("CAREOPS_BLOB_DRIVER", ""); driver != "" {
		k.Set("blob.driver", driver)
	}
	if root := envString("CAREOPS_BLOB_FS_ROOT", ""); root != "" {
		k.Set("blob.fs_root", root)
	}
	if region := envString("CAREOPS_S3_REGION", ""); region != "" {
		k.Set("blob.s3.region", region)
	}
	if bucket := envString("CAREOPS_S3_BUCKET", ""); bucket != "" {
		k.Set("blob.s3.bucket", bucket)
	}
	if endpoint := envString("CAREOPS_S3_ENDPOINT", ""); endpoint != "" {
		k.Set("blob.s3.endpoint", endpoint)
		k.Set("blob.s3.path_style", true)
	}
	if key := envString("CAREOPS_S3_ACCESS_KEY_ID", ""); key != "" {
		k.Set("blob.s3.access_key_id", key)
	}
	if secret := envString("CAREOPS_S3_SECRET_ACCESS_KEY", ""); secret != "" {
		k.Set("blob.s3.secret_access_key", secret)
	}

	if level := envString("CAREOPS_LOG_LEVEL", ""); level != "" {
		k.Set("log.level", level)
	}
	if format := envString("CAREOPS_LOG_FORMAT", ""); format != "" {
		k.Set("log.format", format)
	}

	if exporter := envString("CAREOPS_METRICS_EXPORTER", ""); exporter != "" {
		k.Set("metrics.exporter", exporter)
	}
}

func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
