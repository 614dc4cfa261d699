package match

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	rounds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lvmatch",
			Name:      "rounds_total",
			Help:      "Rounds processed, by path, method and terminal state.",
		}, []string{"path", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lvmatch",
			Name:      "round_duration_seconds",
			Help:      "Wall time from Received to a terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"path"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.rounds, err = register(reg, m.rounds); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}

		return c, err
	}

	return c, nil
}

func (m *metrics) observe(path, method string, outcome State, elapsed time.Duration) {
	if path == "" {
		path = "none"
	}
	if method == "" {
		method = "none"
	}
	m.rounds.WithLabelValues(path, method, strings.ToLower(outcome.String())).Inc()
	m.duration.WithLabelValues(path).Observe(elapsed.Seconds())
}
