package config

import "github.com/dmitrijs2005/equiplookup/internal/flagx"

const configEnv = "EQUIPLOOKUP_SERVER_CONFIG"

// parseEnv overlays secrets and connection strings from the environment so
// they need not appear in a config file or on the command line.
func parseEnv(config *Config) {
	flagx.StringFromEnv(&config.DatabaseDSN, "EQUIPLOOKUP_DATABASE_DSN")
	flagx.StringFromEnv(&config.SecretKey, "EQUIPLOOKUP_SECRET_KEY")
	flagx.StringFromEnv(&config.RedisAddr, "EQUIPLOOKUP_REDIS_ADDR")
	flagx.StringFromEnv(&config.S3RootUser, "EQUIPLOOKUP_S3_ROOT_USER")
	flagx.StringFromEnv(&config.S3RootPassword, "EQUIPLOOKUP_S3_ROOT_PASSWORD")
	flagx.StringFromEnv(&config.AdminEmail, "EQUIPLOOKUP_ADMIN_EMAIL")
}
