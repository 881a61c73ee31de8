package events

import (
	"errors"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/observers/observer"
)

const metricsNamespace = "observers"

type metrics struct {
	notifications *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	registered    prometheus.Gauge
}

// newMetrics registers the bus collectors with reg. A nil reg keeps them
// unregistered. Collectors already registered by an earlier bus are reused.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	var err error
	m := &metrics{}

	if m.notifications, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notifications_total",
		Help:      "Observer notifications by event type, delivery mode and transaction phase.",
	}, []string{"event", "mode", "phase"})); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "failures_total",
		Help:      "Observer notifications that panicked, by event type.",
	}, []string{"event"})); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "notification_duration_seconds",
		Help:      "Time spent inside a single observer callback.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"event", "mode"})); err != nil {
		return nil, err
	}
	if m.registered, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "registered",
		Help:      "Observer methods currently registered.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(event reflect.Type, om observer.ObserverMethod[any], elapsed time.Duration, failed bool) {
	name := typeName(event)
	mode := "sync"
	if om.IsAsync() {
		mode = "async"
	}
	m.notifications.WithLabelValues(name, mode, om.TransactionPhase().String()).Inc()
	m.duration.WithLabelValues(name, mode).Observe(elapsed.Seconds())
	if failed {
		m.failures.WithLabelValues(name).Inc()
	}
}
