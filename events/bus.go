// Package events dispatches event payloads to observer methods.
//
// A Bus holds type-erased observer descriptors built with package observer.
// Firing an event resolves the observers whose observed type accepts the
// payload's runtime type and whose qualifiers are all carried by the event,
// then notifies them in priority order. Synchronous and asynchronous
// observers are disjoint: Fire notifies the former, FireAsync the latter.
// Transactional observers are deferred to the Transaction found in the
// context, if any.
package events

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/observers/observer"
)

// DefaultAsyncWorkers bounds concurrent notifications of one async firing
// when no other limit is configured.
const DefaultAsyncWorkers = 8

// InstanceLookup reports whether an instance of beanClass exists. Observers
// with reception if_exists are skipped when it returns false.
type InstanceLookup func(beanClass reflect.Type) bool

type Options struct {
	Logger          *slog.Logger
	AsyncWorkers    int
	ResolutionCache bool
	// Registerer receives the bus metrics; nil leaves them unregistered.
	Registerer     prometheus.Registerer
	InstanceLookup InstanceLookup
}

type Option func(*Options)

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithAsyncWorkers(n int) Option {
	return func(o *Options) { o.AsyncWorkers = n }
}

func WithResolutionCache(enabled bool) Option {
	return func(o *Options) { o.ResolutionCache = enabled }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = reg }
}

func WithInstanceLookup(fn InstanceLookup) Option {
	return func(o *Options) { o.InstanceLookup = fn }
}

type Bus struct {
	logger  *slog.Logger
	metrics *metrics
	lookup  InstanceLookup
	workers int
	cache   *gocache.Cache

	mu         sync.RWMutex
	observers  []observer.ObserverMethod[any]
	generation uint64
	typeIDs    map[reflect.Type]uint64
	closed     bool

	inflight sync.WaitGroup
}

func New(opts ...Option) (*Bus, error) {
	o := Options{AsyncWorkers: DefaultAsyncWorkers}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.AsyncWorkers < 1 {
		o.AsyncWorkers = DefaultAsyncWorkers
	}

	m, err := newMetrics(o.Registerer)
	if err != nil {
		return nil, err
	}

	b := &Bus{
		logger:  o.Logger,
		metrics: m,
		lookup:  o.InstanceLookup,
		workers: o.AsyncWorkers,
		typeIDs: make(map[reflect.Type]uint64),
	}
	if o.ResolutionCache {
		b.cache = gocache.New(gocache.NoExpiration, 0)
	}
	return b, nil
}

// Register adds om to the bus. Resolution results cached so far are dropped.
func (b *Bus) Register(om observer.ObserverMethod[any]) error {
	if om == nil {
		return errors.New("events: nil observer method")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.observers = append(b.observers, om)
	b.generation++
	b.mu.Unlock()

	if b.cache != nil {
		b.cache.Flush()
	}
	b.metrics.registered.Inc()
	b.logger.Debug("observer registered", "observer", observer.Describe(om))
	return nil
}

// Register adds a typed observer method to b.
func Register[T any](b *Bus, om observer.ObserverMethod[T]) error {
	if om == nil {
		return errors.New("events: nil observer method")
	}
	return b.Register(observer.Erase(om))
}

// Observers returns the registered observers in registration order.
func (b *Bus) Observers() []observer.ObserverMethod[any] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]observer.ObserverMethod[any](nil), b.observers...)
}

// Fire notifies the synchronous observers of event in priority order. The
// first observer that panics stops the delivery and is returned as an
// *ObserverError.
func (b *Bus) Fire(ctx context.Context, event any, qualifiers ...observer.Qualifier) error {
	return b.fire(ctx, event, "", qualifiers)
}

// FireAsync notifies the asynchronous observers of event on a bounded set of
// goroutines. Every observer runs even if others fail; the Completion
// reports their joined errors.
func (b *Bus) FireAsync(ctx context.Context, event any, qualifiers ...observer.Qualifier) *Completion {
	return b.fireAsync(ctx, event, "", qualifiers)
}

// Close rejects further firings and waits for in-flight asynchronous
// deliveries until ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) fire(ctx context.Context, event any, injectionPoint string, qualifiers []observer.Qualifier) error {
	if event == nil {
		return ErrNilEvent
	}
	if b.isClosed() {
		return ErrClosed
	}

	meta := newMetadata(event, injectionPoint, qualifiers, false)
	tx := TransactionFrom(ctx)
	for _, om := range b.Resolve(meta.Type, meta.Qualifiers, false) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.receives(om) {
			continue
		}
		if om.TransactionPhase().IsTransactional() && tx.enlist(om, event, meta) {
			continue
		}
		if err := b.notify(om, event, meta); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) fireAsync(ctx context.Context, event any, injectionPoint string, qualifiers []observer.Qualifier) *Completion {
	c := newCompletion()
	if event == nil {
		c.finish(ErrNilEvent)
		return c
	}
	if err := ctx.Err(); err != nil {
		c.finish(err)
		return c
	}

	b.mu.RLock()
	closed := b.closed
	if !closed {
		b.inflight.Add(1)
	}
	b.mu.RUnlock()
	if closed {
		c.finish(ErrClosed)
		return c
	}

	meta := newMetadata(event, injectionPoint, qualifiers, true)
	observers := b.Resolve(meta.Type, meta.Qualifiers, true)
	go func() {
		defer b.inflight.Done()
		c.finish(b.notifyAll(observers, event, meta))
	}()
	return c
}

// receives applies the reception mode of om.
func (b *Bus) receives(om observer.ObserverMethod[any]) bool {
	if om.Reception() != observer.ReceptionIfExists {
		return true
	}
	if b.lookup != nil && b.lookup(om.BeanClass()) {
		return true
	}
	b.logger.Debug("observer skipped, no bean instance", "observer", observer.Describe(om))
	return false
}

// notify delivers event to om, turning a panic into an *ObserverError.
func (b *Bus) notify(om observer.ObserverMethod[any], event any, meta observer.EventMetadata) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &ObserverError{Observer: observer.Describe(om), Event: meta.Type, Panic: r}
			b.logger.Error("observer failed", "observer", observer.Describe(om), "event", meta.ID, "error", r)
		}
		b.metrics.observe(meta.Type, om, time.Since(start), err != nil)
	}()
	om.Notify(event, meta)
	return nil
}

func (b *Bus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func newMetadata(event any, injectionPoint string, qualifiers []observer.Qualifier, async bool) observer.EventMetadata {
	return observer.EventMetadata{
		ID:             uuid.NewString(),
		Type:           reflect.TypeOf(event),
		Qualifiers:     eventQualifiers(qualifiers),
		InjectionPoint: injectionPoint,
		Async:          async,
		FiredAt:        time.Now(),
	}
}

// eventQualifiers adds @Any to every event and @Default to events fired
// without qualifiers of their own.
func eventQualifiers(qs []observer.Qualifier) observer.QualifierSet {
	set := observer.NewQualifierSet(qs...)
	delete(set, observer.Any)
	if len(set) == 0 {
		set.Add(observer.Default)
	}
	set.Add(observer.Any)
	return set
}
