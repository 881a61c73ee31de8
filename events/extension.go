package events

import (
	"errors"
	"reflect"

	"github.com/skekre98/observers/observer"
)

// Extension contributes observer methods while the container boots.
type Extension interface {
	AfterBeanDiscovery(abd *AfterBeanDiscovery) error
}

// ObserverProcessor is implemented by extensions that inspect, adjust or veto
// every observer method before it is registered, including those contributed
// by other extensions.
type ObserverProcessor interface {
	ProcessObserverMethod(pom *ProcessObserverMethod) error
}

// AfterBeanDiscovery is handed to each Extension in turn.
type AfterBeanDiscovery struct {
	extension reflect.Type
	builds    []func() (observer.ObserverMethod[any], error)
	errs      []error
}

// ExtensionType is the type of the extension currently being run. It is the
// default bean class of the builders it creates.
func (abd *AfterBeanDiscovery) ExtensionType() reflect.Type { return abd.extension }

// AddDefinitionError fails the boot with err once the extension returns.
func (abd *AfterBeanDiscovery) AddDefinitionError(err error) {
	abd.errs = append(abd.errs, err)
}

// AddObserverMethod returns a builder for a new observer of T. The container
// builds and registers it after the extension returns, so the builder must
// not be used afterwards.
func AddObserverMethod[T any](abd *AfterBeanDiscovery) observer.Builder[T] {
	b := observer.NewBuilder[T](abd.extension)
	abd.builds = append(abd.builds, func() (observer.ObserverMethod[any], error) {
		om, err := b.Build()
		if err != nil {
			return nil, err
		}
		return observer.Erase(om), nil
	})
	return b
}

// ProcessObserverMethod is handed to every ObserverProcessor for each
// observer method before registration.
type ProcessObserverMethod struct {
	om        observer.ObserverMethod[any]
	vetoed    bool
	configure []func(observer.Configurator[any])
}

func (p *ProcessObserverMethod) ObserverMethod() observer.ObserverMethod[any] { return p.om }

// ConfigureObserverMethod queues fn to reconfigure the observer in place.
// Queued functions run in order once the processor returns.
func (p *ProcessObserverMethod) ConfigureObserverMethod(fn func(observer.Configurator[any])) {
	p.configure = append(p.configure, fn)
}

// Veto drops the observer.
func (p *ProcessObserverMethod) Veto() { p.vetoed = true }

// Install runs exts against b. Every extension first contributes observers
// through AfterBeanDiscovery; every observer is then passed through each
// ObserverProcessor in extension order and registered unless vetoed.
func Install(b *Bus, exts ...Extension) error {
	var (
		defErrs   []error
		observers []observer.ObserverMethod[any]
	)
	for _, ext := range exts {
		abd := &AfterBeanDiscovery{extension: reflect.TypeOf(ext)}
		var errs []error
		if err := ext.AfterBeanDiscovery(abd); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, abd.errs...)
		for _, build := range abd.builds {
			om, err := build()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			observers = append(observers, om)
		}
		if len(errs) > 0 {
			defErrs = append(defErrs, &DefinitionError{Extension: abd.extension, Err: errors.Join(errs...)})
		}
	}
	if len(defErrs) > 0 {
		return errors.Join(defErrs...)
	}

	for _, om := range observers {
		processed, vetoed, err := process(om, exts)
		if err != nil {
			return err
		}
		if vetoed {
			b.logger.Info("observer vetoed", "observer", observer.Describe(om))
			continue
		}
		if err := b.Register(processed); err != nil {
			return err
		}
	}
	return nil
}

func process(om observer.ObserverMethod[any], exts []Extension) (observer.ObserverMethod[any], bool, error) {
	for _, ext := range exts {
		proc, ok := ext.(ObserverProcessor)
		if !ok {
			continue
		}
		pom := &ProcessObserverMethod{om: om}
		if err := proc.ProcessObserverMethod(pom); err != nil {
			return nil, false, &DefinitionError{Extension: reflect.TypeOf(ext), Err: err}
		}
		if pom.vetoed {
			return nil, true, nil
		}
		if len(pom.configure) == 0 {
			continue
		}
		updated, err := observer.Reconfigure(om, func(c observer.Configurator[any]) {
			for _, fn := range pom.configure {
				fn(c)
			}
		})
		if err != nil {
			return nil, false, &DefinitionError{Extension: reflect.TypeOf(ext), Err: err}
		}
		om = updated
	}
	return om, false, nil
}
