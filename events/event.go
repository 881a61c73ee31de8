package events

import (
	"context"

	"github.com/skekre98/observers/observer"
)

// Event is a typed handle for firing payloads of type T with a fixed set of
// qualifiers. The handle name is reported to observers as the injection
// point of the delivery.
type Event[T any] struct {
	bus        *Bus
	name       string
	qualifiers []observer.Qualifier
}

func NewEvent[T any](bus *Bus, name string, qualifiers ...observer.Qualifier) Event[T] {
	return Event[T]{bus: bus, name: name, qualifiers: append([]observer.Qualifier(nil), qualifiers...)}
}

// Select returns a handle that additionally carries qualifiers.
func (e Event[T]) Select(qualifiers ...observer.Qualifier) Event[T] {
	qs := make([]observer.Qualifier, 0, len(e.qualifiers)+len(qualifiers))
	qs = append(qs, e.qualifiers...)
	return Event[T]{bus: e.bus, name: e.name, qualifiers: append(qs, qualifiers...)}
}

func (e Event[T]) Fire(ctx context.Context, payload T) error {
	return e.bus.fire(ctx, payload, e.name, e.qualifiers)
}

func (e Event[T]) FireAsync(ctx context.Context, payload T) *Completion {
	return e.bus.fireAsync(ctx, payload, e.name, e.qualifiers)
}
