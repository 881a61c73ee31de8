package observer

import (
	"errors"
	"fmt"
	"reflect"
)

// settings is the accumulator shared by builder and configurator.
type settings[T any] struct {
	beanClass    reflect.Type
	observedType reflect.Type
	qualifiers   QualifierSet
	reception    Reception
	phase        TransactionPhase
	priority     int
	async        bool
	callback     func(T, EventMetadata)

	// problems found by setters, keyed by field. A later valid call for the
	// same field discards them.
	pending map[string][]error
}

// pendingFields is the order in which setter problems are reported.
var pendingFields = []string{"beanClass", "observedType", "qualifiers"}

func (s *settings[T]) fail(field, format string, args ...any) {
	if s.pending == nil {
		s.pending = make(map[string][]error)
	}
	s.pending[field] = append(s.pending[field], fieldError(field, format, args...))
}

func newSettings[T any](beanClass reflect.Type) *settings[T] {
	return &settings[T]{
		beanClass:    beanClass,
		observedType: reflect.TypeFor[T](),
		qualifiers:   NewQualifierSet(),
		reception:    ReceptionAlways,
		phase:        InProgress,
		priority:     DefaultPriority,
	}
}

// seedSettings copies the configuration of an existing descriptor.
func seedSettings[T any](om ObserverMethod[T]) *settings[T] {
	return &settings[T]{
		beanClass:    om.BeanClass(),
		observedType: om.ObservedType(),
		qualifiers:   om.ObservedQualifiers(),
		reception:    om.Reception(),
		phase:        om.TransactionPhase(),
		priority:     om.Priority(),
		async:        om.IsAsync(),
		callback:     om.Notify,
	}
}

func (s *settings[T]) addQualifiers(qs []Qualifier) {
	for _, q := range qs {
		if q.Name == "" {
			s.fail("qualifiers", "qualifier %q has an empty name", q.String())
			continue
		}
		s.qualifiers.Add(q)
	}
}

func (s *settings[T]) replaceQualifiers(qs []Qualifier) {
	s.qualifiers = NewQualifierSet()
	delete(s.pending, "qualifiers")
	s.addQualifiers(qs)
}

func (s *settings[T]) notifyWith(fn func(T)) {
	if fn == nil {
		s.callback = nil
		return
	}
	s.callback = func(event T, _ EventMetadata) { fn(event) }
}

func (s *settings[T]) notifyWithMetadata(fn func(T, EventMetadata)) {
	s.callback = fn
}

func (s *settings[T]) setBeanClass(t reflect.Type) {
	if t == nil {
		s.fail("beanClass", "must not be nil")
		return
	}
	delete(s.pending, "beanClass")
	s.beanClass = t
}

func (s *settings[T]) setObservedType(t reflect.Type) {
	if t == nil {
		s.fail("observedType", "must not be nil")
		return
	}
	delete(s.pending, "observedType")
	s.observedType = t
}

func (s *settings[T]) validate() error {
	var errs []error
	for _, field := range pendingFields {
		errs = append(errs, s.pending[field]...)
	}

	if s.callback == nil {
		errs = append(errs, ErrNoCallback)
	}
	if target := reflect.TypeFor[T](); s.observedType != nil && !s.observedType.AssignableTo(target) {
		errs = append(errs, fieldError("observedType", "%v is not assignable to %v", s.observedType, target))
	}
	if !s.reception.IsValid() {
		errs = append(errs, fieldError("reception", "invalid value %d", int(s.reception)))
	}
	if !s.phase.IsValid() {
		errs = append(errs, fieldError("transactionPhase", "invalid value %d", int(s.phase)))
	}
	if s.async && s.phase.IsTransactional() {
		errs = append(errs, fieldError("async", "asynchronous observers cannot use transaction phase %s", s.phase))
	}
	if s.reception == ReceptionIfExists && s.beanClass == nil {
		errs = append(errs, fieldError("beanClass", "required for reception %s", s.reception))
	}
	return errors.Join(errs...)
}

func (s *settings[T]) snapshot() *method[T] {
	return &method[T]{
		beanClass:    s.beanClass,
		observedType: s.observedType,
		qualifiers:   s.qualifiers.Clone(),
		reception:    s.reception,
		phase:        s.phase,
		priority:     s.priority,
		async:        s.async,
		callback:     s.callback,
	}
}

// method is the immutable descriptor produced by Build.
type method[T any] struct {
	beanClass    reflect.Type
	observedType reflect.Type
	qualifiers   QualifierSet
	reception    Reception
	phase        TransactionPhase
	priority     int
	async        bool
	callback     func(T, EventMetadata)
}

func (m *method[T]) BeanClass() reflect.Type            { return m.beanClass }
func (m *method[T]) ObservedType() reflect.Type         { return m.observedType }
func (m *method[T]) ObservedQualifiers() QualifierSet   { return m.qualifiers.Clone() }
func (m *method[T]) Reception() Reception               { return m.reception }
func (m *method[T]) TransactionPhase() TransactionPhase { return m.phase }
func (m *method[T]) Priority() int                      { return m.priority }
func (m *method[T]) IsAsync() bool                      { return m.async }

func (m *method[T]) Notify(event T, meta EventMetadata) {
	m.callback(event, meta)
}

func (m *method[T]) String() string {
	return Describe[T](m)
}

// Describe renders a short human-readable form of om for logs and errors.
func Describe[T any](om ObserverMethod[T]) string {
	bean := "<none>"
	if om.BeanClass() != nil {
		bean = om.BeanClass().String()
	}
	s := fmt.Sprintf("%s observes %v", bean, om.ObservedType())
	if q := om.ObservedQualifiers(); len(q) > 0 {
		s += " " + q.Key()
	}
	s += fmt.Sprintf(" [priority=%d", om.Priority())
	if om.IsAsync() {
		s += " async"
	}
	if om.TransactionPhase().IsTransactional() {
		s += " phase=" + om.TransactionPhase().String()
	}
	if om.Reception() == ReceptionIfExists {
		s += " if_exists"
	}
	return s + "]"
}
