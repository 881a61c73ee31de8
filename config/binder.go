package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Binder decodes map[string]any data into Go structs and validates the result.
//
// Decoding uses mapstructure with `config` tags and weak typing, so "8080"
// binds to an int, "5s" to a time.Duration, "a,b" to a []string and any
// encoding.TextUnmarshaler (such as observer.TransactionPhase) from its text
// form. Validation uses go-playground/validator `validate` tags.
type Binder struct {
	validator *validator.Validate
}

// BindError reports whether decoding or validation failed.
type BindError struct {
	// Stage is "decode" or "validate".
	Stage string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// NewBinder returns a Binder whose validation errors name fields by their
// `config` key, e.g. "Root.events.asyncWorkers".
func NewBinder() *Binder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("config"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Binder{validator: v}
}

// Bind decodes source into target, which must be a pointer to a struct, and
// validates it. target may be partially populated when validation fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	if err := b.decode(source, target); err != nil {
		return &BindError{Stage: "decode", Err: err}
	}
	if err := b.validator.Struct(target); err != nil {
		return &BindError{Stage: "validate", Err: err}
	}
	return nil
}

func (b *Binder) decode(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		TagName: "config",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(source)
}
