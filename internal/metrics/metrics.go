package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful provider calls and resolutions.
	OutcomeSuccess = "success"
	// OutcomeError labels failed provider calls and resolutions.
	OutcomeError = "error"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "resolutions_total",
			Help:      "Total coverage resolutions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	resolutionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coverage",
			Name:      "resolution_seconds",
			Help:      "End-to-end resolution latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "provider_calls_total",
			Help:      "Provider gateway calls, partitioned by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coverage",
			Name:      "provider_call_seconds",
			Help:      "Provider call latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "cache_events_total",
			Help:      "Result cache hits and misses.",
		},
		[]string{"event"},
	)

	telemetryDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry records dropped because the sink buffer was full.",
		},
	)
)

// Register attaches all engine collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		resolutionsTotal,
		resolutionDurationSeconds,
		providerCallsTotal,
		providerCallSeconds,
		cacheEventsTotal,
		telemetryDroppedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveResolution records one resolution's duration and outcome.
func ObserveResolution(duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	resolutionsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	resolutionDurationSeconds.Observe(duration.Seconds())
}

// ObserveProviderCall records one gateway call.
func ObserveProviderCall(provider string, duration time.Duration, success bool) {
	outcome := OutcomeError
	if success {
		outcome = OutcomeSuccess
	}
	providerCallsTotal.WithLabelValues(provider, outcome).Inc()
	providerCallSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// CacheHit and CacheMiss record result cache events.
func CacheHit()  { cacheEventsTotal.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheEventsTotal.WithLabelValues("miss").Inc() }

// TelemetryDropped counts a record lost to a full sink buffer.
func TelemetryDropped() { telemetryDroppedTotal.Inc() }
