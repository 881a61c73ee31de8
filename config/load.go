package config

import "github.com/skekre98/observers/core"

// Load builds a Manager over Root with the given sources layered on top of
// Defaults(). The returned *Root holds the initial load; reloads are
// published through the Manager.
func Load(opts Options, sources ...ConfigSource) (*Root, *Manager, error) {
	cfg := &Root{}
	layers := append([]ConfigSource{&MapSource{Label: "defaults", Values: Defaults()}}, sources...)
	mgr, err := NewManager(cfg, opts, layers...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, mgr, nil
}

// FromContainer returns the live *Root: the current value of the *Manager
// in c when there is one, otherwise the *Root put into c at startup.
func FromContainer(c core.Container) *Root {
	if mgr, ok := core.Lookup[*Manager](c); ok {
		if cfg := Current[Root](mgr); cfg != nil {
			return cfg
		}
	}
	return core.Get[*Root](c)
}
