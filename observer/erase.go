package observer

import "fmt"

// erased adapts an ObserverMethod[T] to ObserverMethod[any].
type erased[T any] struct {
	ObserverMethod[T]
}

// Erase returns a type-erased view of om, as stored by dispatchers that hold
// observers of many event types. Notify panics with a *PayloadTypeError if
// the payload is not a T.
func Erase[T any](om ObserverMethod[T]) ObserverMethod[any] {
	if same, ok := any(om).(ObserverMethod[any]); ok {
		return same
	}
	return erased[T]{om}
}

func (e erased[T]) Notify(event any, meta EventMetadata) {
	v, ok := event.(T)
	if !ok && event != nil {
		panic(&PayloadTypeError{Want: fmt.Sprintf("%v", e.ObservedType()), Got: fmt.Sprintf("%T", event)})
	}
	e.ObserverMethod.Notify(v, meta)
}

func (e erased[T]) String() string {
	return Describe[T](e.ObserverMethod)
}

// PayloadTypeError is raised when an erased observer receives a payload of
// the wrong type.
type PayloadTypeError struct {
	Want string
	Got  string
}

func (e *PayloadTypeError) Error() string {
	return fmt.Sprintf("observer payload type mismatch: expected %s, got %s", e.Want, e.Got)
}
