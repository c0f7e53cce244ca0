package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	serverStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkwarden",
			Subsystem: "server",
			Name:      "starts_total",
			Help:      "Number of successful game-server launches.",
		}, []string{"name"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkwarden",
			Subsystem: "server",
			Name:      "stops_total",
			Help:      "Number of stop operations completed.",
		}, []string{"name"},
	)
	serverRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkwarden",
			Subsystem: "server",
			Name:      "restarts_total",
			Help:      "Number of crash-recovery restarts.",
		}, []string{"name"},
	)
	monitorCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parkwarden",
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Number of completed crash-recovery poll cycles.",
		},
	)
	runningInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "parkwarden",
			Subsystem: "server",
			Name:      "running_instances",
			Help:      "Instances currently visible in the process table.",
		},
	)
)

// Register registers all metrics with the provided registerer. It is safe
// to call multiple times; calls after a success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serverStarts, serverStops, serverRestarts, monitorCycles, runningInstances}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers against the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler serves the default gatherer; the caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(name string) {
	if regOK.Load() {
		serverStarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		serverStops.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		serverRestarts.WithLabelValues(name).Inc()
	}
}

func IncMonitorCycle() {
	if regOK.Load() {
		monitorCycles.Inc()
	}
}

func SetRunningInstances(n int) {
	if regOK.Load() {
		runningInstances.Set(float64(n))
	}
}
