package observer

import (
	"reflect"
	"time"
)

// EventMetadata describes a single event delivery. Two-argument callbacks
// receive it alongside the payload.
type EventMetadata struct {
	// ID identifies the firing; every observer notified for the same firing
	// sees the same ID.
	ID string
	// Type is the runtime type of the payload.
	Type reflect.Type
	// Qualifiers are the qualifiers the event was fired with, including @Any.
	Qualifiers QualifierSet
	// InjectionPoint names the Event handle the payload was fired through, or
	// is empty when it was fired on the bus directly.
	InjectionPoint string
	Async          bool
	FiredAt        time.Time
}
