package config

import (
	"os"

	"github.com/dmitrijs2005/equiplookup/internal/filex"
	"github.com/dmitrijs2005/equiplookup/internal/flagx"
	"github.com/dmitrijs2005/equiplookup/internal/timex"
)

// FileConfig is the on-disk shape of the server configuration. The same
// struct is decoded from JSON or TOML depending on the file extension.
// Durations accept strings such as "15m" or integer nanoseconds.
type FileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" toml:"endpoint_addr_http"`
	ServicePath                  string         `json:"service_path" toml:"service_path"`
	DatabaseDSN                  string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" toml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" toml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" toml:"refresh_token_validity_duration"`
	RedisAddr                    string         `json:"redis_addr" toml:"redis_addr"`
	S3RootUser                   string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	S3PresignValidity            timex.Duration `json:"s3_presign_validity" toml:"s3_presign_validity"`
	AdminEmail                   string         `json:"admin_email" toml:"admin_email"`
	LogFormat                    string         `json:"log_format" toml:"log_format"`
	LogLevel                     string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays values from the file named by -c/-config (or the
// EQUIPLOOKUP_SERVER_CONFIG variable) onto config.
// Only keys present in the file replace the current values. A missing or
// malformed file panics, like a bad flag does.
func parseFile(config *Config) {
	path := flagx.ConfigFile(os.Args[1:], configEnv)
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := filex.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.ServicePath, c.ServicePath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.S3PresignValidity.Duration > 0 {
		config.S3PresignValidity = c.S3PresignValidity.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
