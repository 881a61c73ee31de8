package config

import "context"

// ConfigSource is one layer of configuration data.
//
// Load must be safe for concurrent use and return a map the caller may
// modify. Watch blocks until ctx is done, sending an Event on ch whenever the
// underlying data changes; sources that cannot change return nil at once.
type ConfigSource interface {
	Load(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context, ch chan<- Event) error
	// Name identifies the source in errors and logs ("file", "env", "cli").
	Name() string
}

// Event is a configuration change notification.
type Event struct {
	// ChangedKeys lists the top-level struct fields whose values differ
	// between OldConfig and NewConfig, e.g. ["Events"].
	ChangedKeys []string
	OldConfig   any
	NewConfig   any
}

// Changed reports whether key is among the changed top-level fields.
func (e Event) Changed(key string) bool {
	for _, k := range e.ChangedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// MapSource serves a fixed map, typically Defaults().
type MapSource struct {
	Label  string
	Values map[string]any
}

func (m *MapSource) Name() string {
	if m.Label == "" {
		return "map"
	}
	return m.Label
}

func (m *MapSource) Load(ctx context.Context) (map[string]any, error) {
	return deepCopy(m.Values), nil
}

func (m *MapSource) Watch(ctx context.Context, ch chan<- Event) error { return nil }

func deepCopy(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
			continue
		}
		out[k] = v
	}
	return out
}
