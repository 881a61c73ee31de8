package events

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/observer"
)

const Name = "events"

// Module builds the Bus from configuration, installs exts, and publishes the
// bus into the container. When a *config.Manager is in the container, every
// configuration change is fired on the bus as a config.Event.
func Module(exts ...Extension) core.Module {
	return &module{exts: exts}
}

// FromContainer returns the bus published by Module.
func FromContainer(c core.Container) *Bus {
	return core.Get[*Bus](c)
}

type module struct {
	exts []Extension
	bus  *Bus

	stop chan struct{}
	wg   sync.WaitGroup
}

func (m *module) Name() string        { return Name }
func (m *module) DependsOn() []string { return nil }

func (m *module) Configure(c core.Container) error {
	cfg := config.FromContainer(c)
	l := core.Get[*slog.Logger](c)

	var reg prometheus.Registerer
	if cfg.Observability.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
		if custom, ok := core.Lookup[prometheus.Registerer](c); ok {
			reg = custom
		}
	}

	bus, err := New(
		WithLogger(l.With("module", Name)),
		WithAsyncWorkers(cfg.Events.AsyncWorkers),
		WithResolutionCache(cfg.Events.ResolutionCache),
		WithRegisterer(reg),
		WithInstanceLookup(c.HasInstanceOf),
	)
	if err != nil {
		return err
	}

	exts := append([]Extension(nil), m.exts...)
	if len(cfg.Events.Overrides) > 0 {
		exts = append(exts, overrides(cfg.Events.Overrides))
	}
	if err := Install(bus, exts...); err != nil {
		return err
	}

	l.Info("observers installed", "count", len(bus.Observers()))
	core.Put[*Bus](c, bus)
	m.bus = bus
	return nil
}

func (m *module) Start(ctx context.Context, c core.Container) error {
	mgr, ok := core.Lookup[*config.Manager](c)
	if !ok {
		return nil
	}
	l := core.Get[*slog.Logger](c)

	changes := make(chan config.Event, 8)
	mgr.Subscribe(changes)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stop:
				return
			case evt := <-changes:
				if err := m.bus.Fire(context.Background(), evt); err != nil {
					l.Error("config change observer failed", "changed", evt.ChangedKeys, "error", err)
				}
			}
		}
	}()
	return nil
}

func (m *module) Stop(ctx context.Context, c core.Container) error {
	if m.stop != nil {
		close(m.stop)
		m.wg.Wait()
		m.stop = nil
	}
	if m.bus == nil {
		return nil
	}
	cfg := config.FromContainer(c)
	if cfg.Events.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Events.ShutdownTimeout)
		defer cancel()
	}
	return m.bus.Close(ctx)
}

// overrides applies config.EventsConfig.Overrides to matching observers.
type overrides map[string]config.ObserverOverride

func (o overrides) AfterBeanDiscovery(*AfterBeanDiscovery) error { return nil }

func (o overrides) ProcessObserverMethod(pom *ProcessObserverMethod) error {
	ov, ok := o.lookup(pom.ObserverMethod().BeanClass())
	if !ok {
		return nil
	}
	if ov.Disabled {
		pom.Veto()
		return nil
	}
	pom.ConfigureObserverMethod(func(c observer.Configurator[any]) {
		if ov.Priority != nil {
			c.Priority(*ov.Priority)
		}
		if ov.Async != nil {
			c.Async(*ov.Async)
		}
	})
	return nil
}

// lookup matches the bean class by its fully qualified name
// ("github.com/acme/orders.auditLog") first, then by its short name
// ("orders.auditLog"). The short form is ambiguous when two packages share a
// name; it then applies to beans of both. Pointer bean classes match by their
// element type.
func (o overrides) lookup(bean reflect.Type) (config.ObserverOverride, bool) {
	if bean == nil {
		return config.ObserverOverride{}, false
	}
	if bean.Kind() == reflect.Pointer {
		bean = bean.Elem()
	}
	if ov, ok := o[typeName(bean)]; ok {
		return ov, true
	}
	ov, ok := o[bean.String()]
	return ov, ok
}
