package observer

import "reflect"

type builder[T any] struct {
	s *settings[T]
}

// NewBuilder returns a Builder for observers of T declared by the given
// extension class. The extension class is the bean class unless BeanClass
// overrides it.
func NewBuilder[T any](extension reflect.Type) Builder[T] {
	return &builder[T]{s: newSettings[T](extension)}
}

func (b *builder[T]) AddQualifier(q Qualifier) Builder[T] {
	b.s.addQualifiers([]Qualifier{q})
	return b
}

func (b *builder[T]) AddQualifiers(qs ...Qualifier) Builder[T] {
	b.s.addQualifiers(qs)
	return b
}

func (b *builder[T]) Qualifiers(qs ...Qualifier) Builder[T] {
	b.s.replaceQualifiers(qs)
	return b
}

func (b *builder[T]) Reception(r Reception) Builder[T] {
	b.s.reception = r
	return b
}

func (b *builder[T]) TransactionPhase(p TransactionPhase) Builder[T] {
	b.s.phase = p
	return b
}

func (b *builder[T]) Priority(p int) Builder[T] {
	b.s.priority = p
	return b
}

func (b *builder[T]) NotifyWith(fn func(event T)) Builder[T] {
	b.s.notifyWith(fn)
	return b
}

func (b *builder[T]) NotifyWithMetadata(fn func(event T, meta EventMetadata)) Builder[T] {
	b.s.notifyWithMetadata(fn)
	return b
}

func (b *builder[T]) Async(async bool) Builder[T] {
	b.s.async = async
	return b
}

func (b *builder[T]) BeanClass(t reflect.Type) Builder[T] {
	b.s.setBeanClass(t)
	return b
}

func (b *builder[T]) ObservedType(t reflect.Type) Builder[T] {
	b.s.setObservedType(t)
	return b
}

func (b *builder[T]) Build() (ObserverMethod[T], error) {
	if err := b.s.validate(); err != nil {
		return nil, err
	}
	return b.s.snapshot(), nil
}
