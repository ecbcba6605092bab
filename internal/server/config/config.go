// Package config handles configuration for the server component,
// including defaults, a JSON or TOML file overlay, environment variables
// and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
)

// Config holds runtime settings for the equiplookup server.
//
// Fields:
//   - EndpointAddrGRPC: bind address of the identity gRPC service.
//   - EndpointAddrHTTP: bind address of the catalog HTTP API and /metrics.
//   - ServicePath: prefix under which the catalog routes are mounted.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - RedisAddr: optional redis address for session revocation and auth events.
//   - S3*: object storage used to presign s3:// image references. Presigning
//     is disabled while S3BaseEndpoint is empty.
//   - AdminEmail: account created with a generated password when no admin exists.
//   - LogFormat / LogLevel: see logging.New.
type Config struct {
	EndpointAddrGRPC             string
	EndpointAddrHTTP             string
	ServicePath                  string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	RedisAddr                    string
	S3RootUser                   string
	S3RootPassword               string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	S3PresignValidity            time.Duration
	AdminEmail                   string
	LogFormat                    string
	LogLevel                     string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.ServicePath = common.DefaultServicePath
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.S3Region = "us-east-1"
	c.S3PresignValidity = 15 * time.Minute
	c.AdminEmail = "admin@equiplookup.local"
	c.LogFormat = "json"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the EQUIPLOOKUP_* environment variables and
// finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
