package config

import "github.com/dmitrijs2005/equiplookup/internal/flagx"

const configEnv = "EQUIPLOOKUP_CONFIG"

func parseEnv(config *Config) {
	flagx.StringFromEnv(&config.IdentityAddr, "EQUIPLOOKUP_IDENTITY_ADDR")
	flagx.StringFromEnv(&config.CatalogURL, "EQUIPLOOKUP_CATALOG_URL")
	flagx.StringFromEnv(&config.SessionFile, "EQUIPLOOKUP_SESSION_FILE")
}
