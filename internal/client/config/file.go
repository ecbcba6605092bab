package config

import (
	"os"

	"github.com/dmitrijs2005/equiplookup/internal/filex"
	"github.com/dmitrijs2005/equiplookup/internal/flagx"
	"github.com/dmitrijs2005/equiplookup/internal/timex"
)

// FileConfig is the on-disk shape of the client configuration.
type FileConfig struct {
	IdentityAddr   string         `json:"identity_addr" toml:"identity_addr"`
	CatalogURL     string         `json:"catalog_url" toml:"catalog_url"`
	SessionFile    string         `json:"session_file" toml:"session_file"`
	PullDelay      timex.Duration `json:"pull_delay" toml:"pull_delay"`
	RequestTimeout timex.Duration `json:"request_timeout" toml:"request_timeout"`
	LogFormat      string         `json:"log_format" toml:"log_format"`
	LogLevel       string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays keys present in the -c/-config file (or the file named
// by EQUIPLOOKUP_CONFIG) onto config.
func parseFile(config *Config) {
	path := flagx.ConfigFile(os.Args[1:], configEnv)
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := filex.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}

	setString(&config.IdentityAddr, c.IdentityAddr)
	setString(&config.CatalogURL, c.CatalogURL)
	setString(&config.SessionFile, c.SessionFile)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)

	if c.PullDelay.Duration > 0 {
		config.PullDelay = c.PullDelay.Duration
	}
	if c.RequestTimeout.Duration > 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
