// Package metrics exposes Prometheus collectors for the module loading
// pipeline. Collectors register lazily on first use so importing the package
// costs nothing until the host actually loads modules.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecliptix",
			Subsystem: "modules",
			Name:      "loads_total",
			Help:      "Module load attempts by outcome.",
		},
		[]string{"outcome"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecliptix",
			Subsystem: "modules",
			Name:      "load_duration_seconds",
			Help:      "Wall time of module load routines.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	modulesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ecliptix",
			Subsystem: "modules",
			Name:      "loaded",
			Help:      "Modules currently in the loaded state.",
		},
	)

	activeLoads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ecliptix",
			Subsystem: "modules",
			Name:      "active_loads",
			Help:      "Module loads currently in flight.",
		},
	)
)

// Register installs the collectors into the default registry. Safe to call
// any number of times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(loadsTotal, loadDuration, modulesLoaded, activeLoads)
	})
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

func RecordLoad(outcome string, elapsed time.Duration) {
	Register()
	loadsTotal.WithLabelValues(outcome).Inc()
	loadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func LoadStarted() {
	Register()
	activeLoads.Inc()
}

func LoadFinished() {
	Register()
	activeLoads.Dec()
}

func ModuleLoaded() {
	Register()
	modulesLoaded.Inc()
}

func ModuleUnloaded() {
	Register()
	modulesLoaded.Dec()
}
