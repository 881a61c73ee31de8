package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds how long Stop hooks may run after a signal.
const DefaultShutdownTimeout = 15 * time.Second

type App struct {
	Modules         []Module
	Container       Container
	Logger          *slog.Logger
	ShutdownTimeout time.Duration

	started []Module
}

func NewApp(logger *slog.Logger, mods ...Module) *App {
	return &App{
		Modules:         mods,
		Container:       NewContainer(),
		Logger:          logger,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Run starts every module, blocks until ctx is done or the process receives
// SIGINT/SIGTERM, then stops the modules in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-ctx.Done():
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()
	return a.Stop(shutdownCtx)
}

// Start configures all modules in dependency order and then starts them. If a
// module fails to start, the modules already started are stopped again.
func (a *App) Start(ctx context.Context) error {
	order, err := topoSort(a.Modules)
	if err != nil {
		return err
	}

	for _, m := range order {
		if err := m.Configure(a.Container); err != nil {
			return &ModuleError{Module: m.Name(), Stage: "configure", Err: err}
		}
	}

	for _, m := range order {
		a.Logger.Info("starting module", "module", m.Name())
		if err := m.Start(ctx, a.Container); err != nil {
			_ = a.Stop(ctx)
			return &ModuleError{Module: m.Name(), Stage: "start", Err: err}
		}
		a.started = append(a.started, m)
	}
	return nil
}

// Stop stops started modules in reverse order and returns the first error.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(a.started) - 1; i >= 0; i-- {
		m := a.started[i]
		a.Logger.Info("stopping module", "module", m.Name())
		if err := m.Stop(ctx, a.Container); err != nil && firstErr == nil {
			firstErr = &ModuleError{Module: m.Name(), Stage: "stop", Err: err}
		}
	}
	a.started = nil
	return firstErr
}

// ModuleError reports which module failed and in which lifecycle stage.
type ModuleError struct {
	Module string
	Stage  string
	Err    error
}

func (e *ModuleError) Error() string {
	return "module " + e.Module + " " + e.Stage + ": " + e.Err.Error()
}

func (e *ModuleError) Unwrap() error { return e.Err }

func topoSort(mods []Module) ([]Module, error) {
	nameToMod := map[string]Module{}
	for _, m := range mods {
		if _, dup := nameToMod[m.Name()]; dup {
			return nil, errors.New("duplicate module name: " + m.Name())
		}
		nameToMod[m.Name()] = m
	}
	visited := map[string]bool{}
	temp := map[string]bool{}
	var out []Module
	var visit func(string) error

	visit = func(n string) error {
		if temp[n] {
			return errors.New("cycle detected at module " + n)
		}
		if visited[n] {
			return nil
		}
		temp[n] = true
		m := nameToMod[n]
		for _, d := range m.DependsOn() {
			if _, ok := nameToMod[d]; !ok {
				return errors.New("missing dependency: " + n + " depends on " + d)
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		visited[n] = true
		temp[n] = false
		out = append(out, m)
		return nil
	}

	// Make iteration order stable.
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name())
	}
	sort.Strings(names)

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}
