package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "careops.db", cfg.Storage.SQLitePath)
	require.Equal(t, "fs", cfg.Blob.Driver)
	require.Equal(t, "ap-southeast-2", cfg.Blob.S3.Region)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "prometheus", cfg.Metrics.Exporter)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careops.yaml")
	doc := `
server:
  port: 9090
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/careops_test
blob:
  driver: memory
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Storage.Driver)
	require.Equal(t, "postgres://localhost/careops_test", cfg.Storage.PostgresDSN)
	require.Equal(t, "memory", cfg.Blob.Driver)
	require.Equal(t, "debug", cfg.Log.Level)
	// File did not set the host, so the default survives.
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0o600))
	t.Setenv("CAREOPS_STORAGE_DRIVER", "memory")
	t.Setenv("CAREOPS_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestEndpointEnvImpliesPathStyle(t *testing.T) {
	t.Setenv("CAREOPS_BLOB_DRIVER", "s3")
	t.Setenv("CAREOPS_S3_BUCKET", "careops-test")
	t.Setenv("CAREOPS_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.Blob.S3.PathStyle)
	require.Equal(t, "http://localhost:9000", cfg.Blob.S3.Endpoint)
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("CAREOPS_STORAGE_DRIVER", "cassandra")
	_, err := Load("")
	require.ErrorContains(t, err, "unknown storage driver")
}

func TestLoadRejectsS3WithoutBucket(t *testing.T) {
	t.Setenv("CAREOPS_BLOB_DRIVER", "s3")
	_, err := Load("")
	require.ErrorContains(t, err, "requires a bucket")
}

func TestMetricsExporterSelection(t *testing.T) {
	t.Setenv("CAREOPS_METRICS_EXPORTER", "expvar")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "expvar", cfg.Metrics.Exporter)
}

func TestLoadRejectsUnknownMetricsExporter(t *testing.T) {
	t.Setenv("CAREOPS_METRICS_EXPORTER", "statsd")
	_, err := Load("")
	require.ErrorContains(t, err, "unknown metrics exporter")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
