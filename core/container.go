package core

import (
	"fmt"
	"reflect"
	"sync"
)

// Container is the shared registry modules publish objects into. Observers
// with reception if_exists consult it through HasInstanceOf.
type Container interface {
	Set(key any, val any)
	Get(key any) (any, bool)
	MustGet(key any) any
	// HasInstanceOf reports whether some registered value has type t, or
	// implements t when t is an interface.
	HasInstanceOf(t reflect.Type) bool
}

type container struct {
	mu  sync.RWMutex
	reg map[any]any
}

func NewContainer() Container {
	return &container{reg: make(map[any]any)}
}

func (c *container) Set(key, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg[key] = val
}

func (c *container) Get(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.reg[key]
	return v, ok
}

func (c *container) MustGet(key any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	panic(fmt.Errorf("container: missing dependency %v (%T)", key, key))
}

func (c *container) HasInstanceOf(t reflect.Type) bool {
	if t == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.reg {
		if v == nil {
			continue
		}
		vt := reflect.TypeOf(v)
		if vt == t || (t.Kind() == reflect.Interface && vt.Implements(t)) {
			return true
		}
		// A pointer registered for a struct bean class counts as an instance.
		if vt.Kind() == reflect.Pointer && vt.Elem() == t {
			return true
		}
	}
	return false
}

// Helpers for typed keys
type TypeKey[T any] struct{}

func Put[T any](c Container, v T) { c.Set(TypeKey[T]{}, v) }

func Get[T any](c Container) T {
	raw := c.MustGet(TypeKey[T]{})
	v, ok := raw.(T)
	if !ok {
		panic(fmt.Errorf("container: wrong type. have=%T want=%v", raw, reflect.TypeFor[T]()))
	}
	return v
}

// Lookup is Get without the panic.
func Lookup[T any](c Container) (T, bool) {
	raw, ok := c.Get(TypeKey[T]{})
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
