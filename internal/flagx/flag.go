// Package flagx lets a component parse only its own command-line flags out of
// os.Args, so several parsers can share one command line.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnv names the variable consulted when no config flag is given.
const ConfigEnv = "AUTH_CONFIG"

// name reduces "--flag" and "-flag" to "flag".
func name(arg string) string {
	return strings.TrimLeft(arg, "-")
}

// FilterArgs keeps the arguments that belong to allowedFlags, with their
// values. Single and double dash spellings are equivalent, and both
// "-f value" and "-f=value" forms are recognized. A value that starts with a
// dash is never consumed.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[name(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if before, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := allowed[name(before)]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[name(arg)]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigPath returns the JSON config file named by -c, -config or --config in
// args. The last occurrence wins. Without a flag it falls back to ConfigEnv.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(nopWriter{})
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	return path
}

// JsonConfigFlags is ConfigPath over the process arguments.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
