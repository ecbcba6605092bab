package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the identity service (default from Config)
//	-w string   catalog base URL (default from Config)
//	-f string   session file (default from Config)
//	-i int      start-up session check delay in milliseconds
//	-T int      catalog request timeout in seconds
//	-l string   log format
//	-v string   log level
//
// Parsing errors panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-f", "-i", "-T", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.IdentityAddr, "a", config.IdentityAddr, "address and port of the identity service")
	fs.StringVar(&config.CatalogURL, "w", config.CatalogURL, "catalog base URL")
	fs.StringVar(&config.SessionFile, "f", config.SessionFile, "session file")
	pullDelay := fs.Int("i", int(config.PullDelay.Milliseconds()), "session check delay (milliseconds)")
	requestTimeout := fs.Int("T", int(config.RequestTimeout.Seconds()), "catalog request timeout (seconds)")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PullDelay = time.Duration(*pullDelay) * time.Millisecond
	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
