package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

// Manager loads configuration from layered sources into a user struct,
// validates it, and notifies subscribers when a reload changes it.
//
// Sources are merged in order, later ones overriding earlier ones. A reload
// that fails to load, decode or validate leaves the current configuration in
// place. All methods are safe for concurrent use.
//
// The struct passed to NewManager receives the initial load only. Each
// successful reload publishes a fresh value that is never written again;
// code that must observe reloads reads it through Current or Snapshot.
type Manager struct {
	sources []ConfigSource
	target  any
	current atomic.Value
	binder  *Binder
	logger  *slog.Logger

	mu   sync.RWMutex
	subs []chan Event

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures the behavior of a Manager.
type Options struct {
	// AutoReload starts a watcher per source and reloads on change.
	AutoReload bool
	// Logger receives reload failures from watchers. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewManager loads cfg, a pointer to a struct, from sources.
//
//	var cfg config.Root
//	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: true},
//	    &config.MapSource{Label: "defaults", Values: config.Defaults()},
//	    &source.FileSource{BasePath: "configs"},
//	    &source.EnvSource{},
//	    &source.CLISource{},
//	)
func NewManager(cfg any, opts Options, sources ...ConfigSource) (*Manager, error) {
	if v := reflect.ValueOf(cfg); v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("config: target must be a pointer to a struct, got %T", cfg)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sources: sources,
		target:  cfg,
		binder:  NewBinder(),
		logger:  logger,
	}

	if err := m.Reload(context.Background()); err != nil {
		return nil, err
	}

	if opts.AutoReload {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.startWatchers(ctx)
	}

	return m, nil
}

// Reload loads every source, binds the merged data into a fresh value and,
// if that succeeds, publishes it as the current configuration. Subscribers
// are notified when any top-level field changed.
func (m *Manager) Reload(ctx context.Context) error {
	merged := map[string]any{}
	for _, src := range m.sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		mergeMaps(merged, vals)
	}

	newCfg := reflect.New(reflect.TypeOf(m.target).Elem()).Interface()
	if err := m.binder.Bind(merged, newCfg); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	m.mu.Lock()
	oldCfg := m.current.Load()
	if oldCfg == nil {
		// Nothing has been handed out yet, so the caller's struct is filled.
		reflect.ValueOf(m.target).Elem().Set(reflect.ValueOf(newCfg).Elem())
		m.current.Store(m.target)
		m.mu.Unlock()
		return nil
	}
	m.current.Store(newCfg)
	m.mu.Unlock()

	if !reflect.DeepEqual(oldCfg, newCfg) {
		m.notify(changeEvent(oldCfg, newCfg))
	}
	return nil
}

// Current returns the configuration published by the last successful load,
// a pointer of the same type passed to NewManager. Callers must not modify
// it.
func (m *Manager) Current() any {
	return m.current.Load()
}

// Current returns m's configuration as a *T, or nil when m manages another
// type.
//
//	cfg := config.Current[config.Root](mgr)
func Current[T any](m *Manager) *T {
	cfg, _ := m.Current().(*T)
	return cfg
}

// Snapshot copies the current configuration into out, which must be a
// pointer to the managed struct type.
func (m *Manager) Snapshot(out any) error {
	dst := reflect.ValueOf(out)
	src := reflect.ValueOf(m.current.Load()).Elem()
	if dst.Kind() != reflect.Pointer || dst.Elem().Type() != src.Type() {
		return fmt.Errorf("config: snapshot target must be *%v, got %T", src.Type(), out)
	}
	dst.Elem().Set(src)
	return nil
}

// Subscribe registers ch for change events. Sends never block: if ch is
// full the event is dropped, so use a buffered channel. The Manager never
// closes ch.
func (m *Manager) Subscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

// Close stops the watchers started by AutoReload.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	subs := append([]chan Event(nil), m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (m *Manager) startWatchers(ctx context.Context) {
	for _, src := range m.sources {
		ch := make(chan Event, 1)
		m.wg.Add(2)
		go func() {
			defer m.wg.Done()
			if err := src.Watch(ctx, ch); err != nil && ctx.Err() == nil {
				m.logger.Warn("config watch failed", "source", src.Name(), "error", err)
			}
		}()
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ch:
					if err := m.Reload(ctx); err != nil && ctx.Err() == nil {
						m.logger.Error("config reload failed", "source", src.Name(), "error", err)
					}
				}
			}
		}()
	}
}
