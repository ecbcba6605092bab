package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the equiplookup CLI.
//
// Fields:
//   - IdentityAddr: host:port of the identity gRPC service.
//   - CatalogURL: base URL of the catalog HTTP API, service path included.
//   - SessionFile: where the signed-in session is persisted between runs.
//   - PullDelay: delay of the one-shot session check after start-up.
//   - RequestTimeout: per-request transport timeout of the catalog client.
//   - LogFormat / LogLevel: see logging.New.
type Config struct {
	IdentityAddr   string
	CatalogURL     string
	SessionFile    string
	PullDelay      time.Duration
	RequestTimeout time.Duration
	LogFormat      string
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.IdentityAddr = "127.0.0.1:50051"
	c.CatalogURL = "http://127.0.0.1:8080/catalog/v1"
	c.SessionFile = defaultSessionFile()
	c.PullDelay = time.Second
	c.RequestTimeout = 15 * time.Second
	c.LogFormat = "console"
	c.LogLevel = "warn"
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".equiplookup", "session.json")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present), environment variables and command-line flags
// (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
