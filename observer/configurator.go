package observer

type configurator[T any] struct {
	s *settings[T]
}

// Reconfigure seeds a Configurator with the settings of om, lets fn modify
// them and returns the resulting descriptor. om itself is left untouched.
//
// Unless fn installs a new callback, the result notifies through om.
func Reconfigure[T any](om ObserverMethod[T], fn func(Configurator[T])) (ObserverMethod[T], error) {
	c := &configurator[T]{s: seedSettings(om)}
	fn(c)
	if err := c.s.validate(); err != nil {
		return nil, err
	}
	return c.s.snapshot(), nil
}

func (c *configurator[T]) AddQualifier(q Qualifier) Configurator[T] {
	c.s.addQualifiers([]Qualifier{q})
	return c
}

func (c *configurator[T]) AddQualifiers(qs ...Qualifier) Configurator[T] {
	c.s.addQualifiers(qs)
	return c
}

func (c *configurator[T]) Qualifiers(qs ...Qualifier) Configurator[T] {
	c.s.replaceQualifiers(qs)
	return c
}

func (c *configurator[T]) Reception(r Reception) Configurator[T] {
	c.s.reception = r
	return c
}

func (c *configurator[T]) TransactionPhase(p TransactionPhase) Configurator[T] {
	c.s.phase = p
	return c
}

func (c *configurator[T]) Priority(p int) Configurator[T] {
	c.s.priority = p
	return c
}

func (c *configurator[T]) NotifyWith(fn func(event T)) Configurator[T] {
	c.s.notifyWith(fn)
	return c
}

func (c *configurator[T]) NotifyWithMetadata(fn func(event T, meta EventMetadata)) Configurator[T] {
	c.s.notifyWithMetadata(fn)
	return c
}

func (c *configurator[T]) Async(async bool) Configurator[T] {
	c.s.async = async
	return c
}
