package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathJSON := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc":              "www.example:9000",
		"endpoint_addr_http":              "www.example:8000",
		"database_dsn":                    "postgres://x",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"redis_addr":                      "redis:6379",
		"s3_bucket":                       "bucket",
		"s3_base_endpoint":                "http://minio:9000",
		"log_format":                      "text",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathJSON}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "www.example:8000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "http://minio:9000", cfg.S3BaseEndpoint)
		assert.Equal(t, "text", cfg.LogFormat)
		// keys absent from the file keep their defaults
		assert.Equal(t, "/catalog/v1", cfg.ServicePath)
		assert.Equal(t, "us-east-1", cfg.S3Region)
	})

	t.Run("loads from toml", func(t *testing.T) {
		path := filepath.Join(dir, "server.toml")
		require.NoError(t, os.WriteFile(path, []byte(
			"endpoint_addr_grpc = \":7000\"\nservice_path = \"/api\"\naccess_token_validity_duration = \"90s\"\n"), 0o600))
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "/api", cfg.ServicePath)
		assert.Equal(t, 90*time.Second, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 24*time.Hour, cfg.RefreshTokenValidityDuration)
	})

	t.Run("no config flag leaves values untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrGRPC: "defaults:1234", SecretKey: "key"}
		parseFile(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseFile(cfg) })
	})
}
