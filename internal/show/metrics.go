package show

import "github.com/prometheus/client_golang/prometheus"

// Metrics
var (
	showsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tokencast_shows_started_total", Help: "Shows started"},
	)
	segmentsActivated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tokencast_segments_activated_total", Help: "Segments activated"},
		[]string{"type"},
	)
	generatorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tokencast_generator_failures_total", Help: "Generator failures absorbed into fallback content"},
		[]string{"type"},
	)
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokencast_generation_duration_seconds",
			Help:    "Content generation time",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"type"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(showsStarted, segmentsActivated, generatorFailures, generationDuration)
}
