package events

import (
	"reflect"
	"sort"
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/skekre98/observers/observer"
)

// Resolve returns the observers of the given delivery mode that match an
// event of type eventType carrying qualifiers, ordered by priority and then
// registration order. Reception is not applied here; it depends on container
// state at notification time.
func (b *Bus) Resolve(eventType reflect.Type, qualifiers observer.QualifierSet, async bool) []observer.ObserverMethod[any] {
	if eventType == nil {
		return nil
	}

	b.mu.Lock()
	observers := append([]observer.ObserverMethod[any](nil), b.observers...)
	generation := b.generation
	var key string
	if b.cache != nil {
		key = strconv.FormatUint(b.typeID(eventType), 10) + "|" + qualifiers.Key() + "|" + strconv.FormatBool(async)
	}
	b.mu.Unlock()

	if b.cache != nil {
		if hit, ok := b.cache.Get(key); ok {
			return hit.([]observer.ObserverMethod[any])
		}
	}

	var matched []observer.ObserverMethod[any]
	for _, om := range observers {
		if om.IsAsync() != async {
			continue
		}
		if !eventType.AssignableTo(om.ObservedType()) {
			continue
		}
		if !qualifiers.ContainsAll(om.ObservedQualifiers()) {
			continue
		}
		matched = append(matched, om)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority() < matched[j].Priority()
	})

	if b.cache != nil {
		// Register bumps the generation under the write lock before flushing,
		// so a list computed from an older snapshot is never stored.
		b.mu.RLock()
		if b.generation == generation {
			b.cache.Set(key, matched, gocache.NoExpiration)
		}
		b.mu.RUnlock()
	}
	return matched
}

// typeID returns a stable number for t. Type names are not unique across
// packages, the reflect.Type itself is. Callers hold b.mu.
func (b *Bus) typeID(t reflect.Type) uint64 {
	id, ok := b.typeIDs[t]
	if !ok {
		id = uint64(len(b.typeIDs)) + 1
		b.typeIDs[t] = id
	}
	return id
}

// typeName renders t with every named type qualified by its package path,
// e.g. "*github.com/acme/shop/model.Created" or
// "map[string][]github.com/acme/shop/model.Line".
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" {
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + typeName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + typeName(t.Elem())
		}
		return "chan " + typeName(t.Elem())
	}
	return t.String()
}
