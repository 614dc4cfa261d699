package match

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	log      logr.Logger
	registry prometheus.Registerer
	tracer   trace.TracerProvider
	now      func() time.Time
	newID    func() string
}

func defaultConfig() config {
	return config{
		log:      logr.Discard(),
		registry: prometheus.DefaultRegisterer,
		tracer:   otel.GetTracerProvider(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithLogger sets the structured logger. Default: logr.Discard().
func WithLogger(l logr.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithRegistry sets where round metrics are registered. A nil registerer
// keeps metrics unregistered. Default: prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *config) { c.registry = r }
}

// WithTracerProvider sets the OpenTelemetry provider. Default: the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracer = tp
		}
	}
}

// WithClock overrides time.Now, for CreatedAt and durations.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides the round identifier source (uuid v4).
func WithIDGenerator(f func() string) Option {
	return func(c *config) {
		if f != nil {
			c.newID = f
		}
	}
}
