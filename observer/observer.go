// Package observer defines observer-method descriptors and the fluent
// builder used to create them.
//
// An extension obtains a Builder from the container, chains configuration
// calls and finishes with Build:
//
//	om, err := observer.NewBuilder[OrderPlaced](reflect.TypeOf(ext)).
//	    AddQualifier(observer.Named("eu")).
//	    TransactionPhase(observer.AfterSuccess).
//	    Priority(100).
//	    NotifyWith(func(o OrderPlaced) { ... }).
//	    Build()
//
// Builders and configurators are not safe for concurrent use. Descriptors
// returned by Build are immutable.
package observer

import "reflect"

// DefaultPriority is the priority of observers that never set one. Lower
// priorities are notified first.
const DefaultPriority = 2500

// ObserverMethod is the runtime descriptor of an observer. The dispatcher
// uses it to match events and to deliver them.
type ObserverMethod[T any] interface {
	// BeanClass is the declaring bean of the observer.
	BeanClass() reflect.Type
	// ObservedType is the type an event payload must be assignable to.
	ObservedType() reflect.Type
	// ObservedQualifiers returns a copy of the qualifiers an event must carry.
	ObservedQualifiers() QualifierSet
	Reception() Reception
	TransactionPhase() TransactionPhase
	Priority() int
	IsAsync() bool
	// Notify delivers event to the callback.
	Notify(event T, meta EventMetadata)
}

// Configurator accumulates observer-method configuration. Every method
// mutates the configurator and returns it for chaining.
type Configurator[T any] interface {
	// AddQualifier adds q to the observed qualifiers.
	AddQualifier(q Qualifier) Configurator[T]
	// AddQualifiers adds every qualifier of qs.
	AddQualifiers(qs ...Qualifier) Configurator[T]
	// Qualifiers replaces the observed qualifiers with qs.
	Qualifiers(qs ...Qualifier) Configurator[T]
	Reception(r Reception) Configurator[T]
	TransactionPhase(p TransactionPhase) Configurator[T]
	Priority(p int) Configurator[T]
	// NotifyWith sets the callback to fn. It replaces any callback set before,
	// including one set through NotifyWithMetadata.
	NotifyWith(fn func(event T)) Configurator[T]
	// NotifyWithMetadata sets a callback that also receives the delivery
	// metadata. It replaces any callback set before.
	NotifyWithMetadata(fn func(event T, meta EventMetadata)) Configurator[T]
	// Async marks the observer for asynchronous delivery.
	Async(async bool) Configurator[T]
}

// Builder offers every Configurator operation plus the settings needed to
// materialize a standalone descriptor.
type Builder[T any] interface {
	AddQualifier(q Qualifier) Builder[T]
	AddQualifiers(qs ...Qualifier) Builder[T]
	Qualifiers(qs ...Qualifier) Builder[T]
	Reception(r Reception) Builder[T]
	TransactionPhase(p TransactionPhase) Builder[T]
	Priority(p int) Builder[T]
	NotifyWith(fn func(event T)) Builder[T]
	NotifyWithMetadata(fn func(event T, meta EventMetadata)) Builder[T]
	Async(async bool) Builder[T]

	// BeanClass sets the declaring bean. When never called the extension
	// class the builder was created for is used.
	BeanClass(t reflect.Type) Builder[T]
	// ObservedType sets the type events are matched against. It must be
	// assignable to T and defaults to T itself.
	ObservedType(t reflect.Type) Builder[T]

	// Build validates the accumulated configuration and returns an immutable
	// descriptor. Calling Build again without changes yields an equal
	// descriptor.
	Build() (ObserverMethod[T], error)
}
