package actuator

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/web"
)

const Name = "actuator"

type module struct{}

func Module() core.Module { return &module{} }

func (m *module) Name() string        { return Name }
func (m *module) DependsOn() []string { return []string{web.Name, events.Name} }

func (m *module) Configure(c core.Container) error {
	engine := web.Engine(c)
	cfg := config.FromContainer(c)
	bus := events.FromContainer(c)

	group := engine.Group(cfg.Actuator.BasePath)

	group.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status": "UP",
			"checks": []gin.H{
				{"name": events.Name, "status": "UP", "observers": len(bus.Observers())},
			},
		})
	})

	group.GET("/info", func(ctx *gin.Context) {
		cfg := config.FromContainer(c)
		ctx.JSON(http.StatusOK, gin.H{
			"app": gin.H{
				"name":    cfg.App.Name,
				"version": cfg.App.Version,
			},
			"runtime": gin.H{
				"go":           runtime.Version(),
				"numGoroutine": runtime.NumGoroutine(),
				"time":         time.Now().UTC().Format(time.RFC3339),
				"pid":          os.Getpid(),
			},
		})
	})

	// Registered observers in registration order.
	group.GET("/observers", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, bus.Describe())
	})

	if metrics := cfg.Observability.Metrics; metrics.Enabled {
		if metrics.Path != "" {
			engine.GET(metrics.Path, gin.WrapH(metricsHandler(c)))
		} else {
			group.GET("/metrics", gin.WrapH(metricsHandler(c)))
		}
	}

	return nil
}

// metricsHandler serves the registry the events module registered with.
func metricsHandler(c core.Container) http.Handler {
	if reg, ok := core.Lookup[prometheus.Registerer](c); ok {
		if g, ok := reg.(prometheus.Gatherer); ok {
			return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
	return promhttp.Handler()
}

func (m *module) Start(_ context.Context, _ core.Container) error { return nil }
func (m *module) Stop(_ context.Context, _ core.Container) error  { return nil }
