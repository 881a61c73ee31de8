package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/skekre98/observers/config"
)

// CLISource loads configuration from command-line flags written in dot
// notation:
//
//	--server.addr=:9090 --events.asyncWorkers 16 -logging.level=debug
//	  -> {server: {addr: ":9090"}, events: {asyncWorkers: "16"}, logging: {level: "debug"}}
//
// Both --flag=value and --flag value forms are accepted, single-dash long
// flags are treated like double-dash ones, and empty values and positional
// arguments are ignored. It should normally be the last source so flags win.
type CLISource struct {
	// Args defaults to os.Args[1:].
	Args []string
}

func (c *CLISource) Name() string { return "cli" }

// Load never fails; unknown or malformed flags are ignored.
func (c *CLISource) Load(ctx context.Context) (map[string]any, error) {
	args := c.Args
	if args == nil {
		args = os.Args[1:]
	}
	return parseCliFlags(args), nil
}

// Watch returns nil: arguments are fixed for the process lifetime.
func (c *CLISource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func parseCliFlags(raw []string) map[string]any {
	result := make(map[string]any)
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	args := normalizeArgs(raw)
	registered := make(map[string]bool)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name := extractFlagName(arg)
		if name == "" {
			continue
		}
		if !registered[name] {
			fs.String(name, "", fmt.Sprintf("Config value for %s", name))
			registered[name] = true
		}

		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}

	_ = fs.Parse(args)

	fs.VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}
		if value := flag.Value.String(); value != "" {
			setNestedValue(result, strings.Split(flag.Name, "."), value)
		}
	})

	return result
}

// normalizeArgs converts single-dash long flags to double-dash for pflag.
func normalizeArgs(args []string) []string {
	normalized := make([]string, len(args))
	for i, arg := range args {
		withoutDash := strings.TrimPrefix(arg, "-")
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(withoutDash) > 1 && withoutDash[0] != '=' {
			normalized[i] = "-" + arg
			continue
		}
		normalized[i] = arg
	}
	return normalized
}

// extractFlagName strips dashes and any =value suffix.
func extractFlagName(arg string) string {
	arg = strings.TrimLeft(arg, "-")
	name, _, _ := strings.Cut(arg, "=")
	return name
}
