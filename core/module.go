package core

import "context"

// Module is a unit of the application lifecycle. App configures every module
// in dependency order before starting any of them, and stops them in reverse.
type Module interface {
	Name() string
	// DependsOn names modules whose Configure must run first, e.g. "events"
	// for anything that fires on the bus.
	DependsOn() []string
	// Configure reads shared objects from c and publishes its own into it.
	Configure(c Container) error
	Start(ctx context.Context, c Container) error
	// Stop releases what Start acquired. ctx bounds the shutdown.
	Stop(ctx context.Context, c Container) error
}
