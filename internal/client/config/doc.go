// Package config loads runtime configuration for the equiplookup CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or TOML file selected via -c or -config, or named by
//     EQUIPLOOKUP_CONFIG.
//  3. EQUIPLOOKUP_IDENTITY_ADDR, EQUIPLOOKUP_CATALOG_URL and
//     EQUIPLOOKUP_SESSION_FILE.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the identity gRPC service
//	-w string   catalog base URL
//	-f string   session file path
//	-i int      delay of the start-up session check (milliseconds)
//	-T int      catalog request timeout (seconds)
//	-l string   log format: json, text or console
//	-v string   log level: debug, info, warn or error
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "1s"
// or integer nanoseconds:
//
//	{
//	  "identity_addr": "127.0.0.1:50051",
//	  "catalog_url": "http://127.0.0.1:8080/catalog/v1",
//	  "pull_delay": "1s"
//	}
package config
