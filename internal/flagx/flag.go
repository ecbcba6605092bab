// Package flagx holds the argument and environment helpers behind the
// layered configuration: defaults, then a config file, then environment
// variables, then flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the allowed flags of args together with their
// values, so a FlagSet that knows just those flags can parse the result.
// Both "-c conf.json" and "-c=conf.json" forms are kept, and "--name" is
// treated like "-name".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[canonical(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if _, keep := allowed[canonical(name)]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[canonical(arg)]; keep {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

func canonical(name string) string {
	return "-" + strings.TrimLeft(name, "-")
}

// ConfigFile returns the config file path given with -c or -config. When
// neither flag is present it falls back to the environment variable envVar.
// An empty envVar disables the fallback.
func ConfigFile(args []string, envVar string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" && envVar != "" {
		path = os.Getenv(envVar)
	}
	return path
}

// StringFromEnv sets *dst from the environment variable key when it is set
// to a non-empty value.
func StringFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
