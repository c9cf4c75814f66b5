package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests     *prometheus.CounterVec
	CounterSessions     *prometheus.CounterVec
	CounterSets         prometheus.Counter
	CounterRestSkipped  prometheus.Counter
	CounterCheckpoints  *prometheus.CounterVec
	CounterAchievements *prometheus.CounterVec

	// gauges
	GaugeLiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration    prometheus.Histogram
	HistCheckpointDuration prometheus.Histogram
	HistRecommendedRest    prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("livereps", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("livereps", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_events",
		Help:      "Session lifecycle events by kind",
	}, []string{"event"})
	counterSets := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_completed",
		Help:      "The total number of completed sets",
	})
	counterRestSkipped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rest_skipped",
		Help:      "The total number of skipped rest periods",
	})
	counterCheckpoints := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "checkpoints",
		Help:      "Session checkpoint writes by result",
	}, []string{"result"})
	counterAchievements := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "achievements_unlocked",
		Help:      "Unlocked achievements by rarity",
	}, []string{"rarity"})

	gaugeLiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_sessions",
		Help:      "Sessions currently held in memory",
	})

	histRequestDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds",
	})
	histCheckpointDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		Name:      "checkpoint_duration_seconds",
		Help:      "Duration of a single session checkpoint write",
	})
	histRecommendedRest := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{30, 45, 60, 90, 120, 150, 180, 210, 240},
		Name:      "recommended_rest_seconds",
		Help:      "Adaptive rest recommendations in seconds",
	})

	return &Manager{
		CounterRequests:        counterRequests,
		CounterSessions:        counterSessions,
		CounterSets:            counterSets,
		CounterRestSkipped:     counterRestSkipped,
		CounterCheckpoints:     counterCheckpoints,
		CounterAchievements:    counterAchievements,
		GaugeLiveSessions:      gaugeLiveSessions,
		HistRequestDuration:    histRequestDuration,
		HistCheckpointDuration: histCheckpointDuration,
		HistRecommendedRest:    histRecommendedRest,
	}
}
