package config

import "time"

type AppInfo struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
}

type LoggingConfig struct {
	Level  string `config:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `config:"format" validate:"omitempty,oneof=text json"`
}

// ObserverOverride adjusts a registered observer at startup. Unset fields
// keep the value the observer was built with.
type ObserverOverride struct {
	Priority *int  `config:"priority"`
	Async    *bool `config:"async"`
	Disabled bool  `config:"disabled"`
}

type EventsConfig struct {
	// AsyncWorkers bounds the goroutines delivering one asynchronous firing.
	AsyncWorkers int `config:"asyncWorkers" validate:"min=1"`
	// ResolutionCache keeps resolved observer lists per event type and
	// qualifiers until the next registration.
	ResolutionCache bool          `config:"resolutionCache"`
	ShutdownTimeout time.Duration `config:"shutdownTimeout"`
	// Overrides is keyed by the observer's bean class, e.g. "main.auditLog".
	Overrides map[string]ObserverOverride `config:"overrides"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Server        ServerConfig        `config:"server"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
	Logging       LoggingConfig       `config:"logging"`
	Events        EventsConfig        `config:"events"`
}

// Defaults returns the lowest-precedence configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":         ":8080",
			"readTimeout":  "5s",
			"writeTimeout": "10s",
			"idleTimeout":  "60s",
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
		"observability": map[string]any{
			"metrics": map[string]any{
				"enabled": true,
				"path":    "/actuator/metrics",
			},
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"events": map[string]any{
			"asyncWorkers":    8,
			"resolutionCache": true,
			"shutdownTimeout": "10s",
		},
	}
}
