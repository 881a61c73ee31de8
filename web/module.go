package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
)

const Name = "web"

func Engine(c core.Container) *gin.Engine {
	return core.Get[*gin.Engine](c)
}

func Module(opts ...Option) core.Module {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &webModule{opts: options}
}

type webModule struct {
	opts   Options
	server *http.Server
}

func (m *webModule) Name() string        { return Name }
func (m *webModule) DependsOn() []string { return []string{events.Name} }

func (m *webModule) Configure(c core.Container) error {
	cfg := config.FromContainer(c)
	l := core.Get[*slog.Logger](c).With("module", Name)
	bus, _ := core.Lookup[*events.Bus](c)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(RequestID())
	r.Use(RecoveryProblem(l))
	r.Use(AccessLog(l, bus))
	r.Use(m.opts.Middlewares...)

	for _, reg := range m.opts.Routes {
		reg(r)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	core.Put[*gin.Engine](c, r)
	core.Put[*http.Server](c, srv)
	m.server = srv
	return nil
}

func (m *webModule) Start(ctx context.Context, c core.Container) error {
	l := core.Get[*slog.Logger](c).With("module", Name)
	go func() {
		l.Info("http server starting", "addr", m.server.Addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx is done.
func (m *webModule) Stop(ctx context.Context, c core.Container) error {
	if err := m.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
