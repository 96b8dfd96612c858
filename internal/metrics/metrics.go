package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	timersStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "timer",
			Name:      "starts_total",
			Help:      "Number of timers created, by mode (background or foreground).",
		}, []string{"mode"},
	)
	timerExpirations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "timer",
			Name:      "expirations_total",
			Help:      "Number of waiting periods that reached their deadline.",
		},
	)
	timerActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "timer",
			Name:      "actions_total",
			Help:      "User decisions taken after expiry (snooze, restart, stop).",
		}, []string{"action"},
	)
	timerWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bgtimer",
			Subsystem: "timer",
			Name:      "wait_seconds",
			Help:      "Length of each waiting period entered.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 4 * 3600, 24 * 3600},
		},
	)
	terminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "monitor",
			Name:      "terminations_total",
			Help:      "Termination signals sent to timer processes, by result.",
		}, []string{"result"},
	)
	reaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "monitor",
			Name:      "reaped_total",
			Help:      "Records removed because their deadline had passed.",
		},
	)
	sinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgtimer",
			Subsystem: "history",
			Name:      "sink_errors_total",
			Help:      "Failed deliveries to the history export sink.",
		}, []string{"event"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{timersStarted, timerExpirations, timerActions, timerWait, terminations, reaped, sinkErrors}
	for _, c := range cs {
		if err := register(r, c); err != nil {
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterActiveGauge exposes the number of registry rows. count is called on
// every scrape, so it should be a single cheap query.
func RegisterActiveGauge(r prometheus.Registerer, count func() float64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bgtimer",
		Subsystem: "registry",
		Name:      "active_timers",
		Help:      "Timers currently present in the registry.",
	}, count)
	return register(r, g)
}

func register(r prometheus.Registerer, c prometheus.Collector) error {
	if err := r.Register(c); err != nil {
		// If already registered, ignore (allows double Register with default registry)
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart(foreground bool) {
	if regOK.Load() {
		mode := "background"
		if foreground {
			mode = "foreground"
		}
		timersStarted.WithLabelValues(mode).Inc()
	}
}

func IncExpired() {
	if regOK.Load() {
		timerExpirations.Inc()
	}
}

func IncAction(action string) {
	if regOK.Load() {
		timerActions.WithLabelValues(action).Inc()
	}
}

func ObserveWait(seconds float64) {
	if regOK.Load() {
		timerWait.Observe(seconds)
	}
}

func IncTermination(ok bool) {
	if regOK.Load() {
		result := "ok"
		if !ok {
			result = "error"
		}
		terminations.WithLabelValues(result).Inc()
	}
}

func IncReaped(n int) {
	if regOK.Load() && n > 0 {
		reaped.Add(float64(n))
	}
}

func IncSinkError(event string) {
	if regOK.Load() {
		sinkErrors.WithLabelValues(event).Inc()
	}
}
