package source

import (
	"context"
	"os"
	"strings"

	"github.com/skekre98/observers/config"
)

// DefaultEnvPrefix is the prefix EnvSource uses when Prefix is empty.
const DefaultEnvPrefix = "OBSERVERS_"

// EnvSource loads configuration from environment variables.
//
// Variables are filtered by prefix, lower-cased and split on underscores
// into nested keys:
//
//	OBSERVERS_SERVER_ADDR=:9090        -> {server: {addr: ":9090"}}
//	OBSERVERS_EVENTS_ASYNCWORKERS=16   -> {events: {asyncworkers: "16"}}
//
// Binding matches keys case-insensitively, so asyncworkers still binds to the
// asyncWorkers field. If a leaf already exists at a path, deeper variables
// under it are skipped.
type EnvSource struct {
	// Prefix defaults to DefaultEnvPrefix.
	Prefix string
	// Environ defaults to os.Environ.
	Environ func() []string
}

func (e *EnvSource) Name() string { return "env" }

// Load never fails; malformed variables are ignored.
func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	return loadEnvVars(prefix, environ()), nil
}

// Watch returns nil: the environment is fixed for the process lifetime.
func (e *EnvSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func loadEnvVars(prefix string, environ []string) map[string]any {
	result := make(map[string]any)

	for _, env := range environ {
		key, value, found := strings.Cut(env, "=")
		if !found || !strings.HasPrefix(key, prefix) {
			continue
		}

		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		setNestedValue(result, strings.Split(key, "_"), value)
	}

	return result
}

func setNestedValue(m map[string]any, segments []string, value string) {
	current := m

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if i == len(segments)-1 {
			current[segment] = value
			return
		}

		switch existing := current[segment].(type) {
		case map[string]any:
			current = existing
		case nil:
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
		default:
			// a leaf already lives here
			return
		}
	}
}
