package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// Collector holds the service's prometheus metrics.
type Collector struct {
	ContactsLogged    *prometheus.CounterVec
	FeedbackSubmitted prometheus.Counter
	RecomputeDuration prometheus.Histogram
	RecomputeFailures prometheus.Counter
	RecomputeSkipped  prometheus.Counter
	TrustScore        prometheus.Histogram
	SweepDeactivated  prometheus.Counter
	SweepFailures     prometheus.Counter
	QueueJobs         *prometheus.CounterVec
	RateLimitRejected prometheus.Counter
}

// NewCollector registers the metrics with reg. Pass prometheus.DefaultRegisterer
// to expose them on /metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		ContactsLogged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "contacts_logged_total",
			Help:      "Contacts logged, by contact method",
		}, []string{"method"}),
		FeedbackSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "feedback_submitted_total",
			Help:      "Feedback surveys attached to contacts",
		}),
		RecomputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent recomputing one vendor's metrics",
			Buckets:   prometheus.DefBuckets,
		}),
		RecomputeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "recompute_failures_total",
			Help:      "Metrics recomputations that failed",
		}),
		RecomputeSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "recompute_skipped_total",
			Help:      "Recomputations skipped because the vendor has no feedback yet",
		}),
		TrustScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "trust_score",
			Help:      "Distribution of computed trust scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		SweepDeactivated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "sweep_deactivated_total",
			Help:      "Vendors flipped to inactive by the sweep",
		}),
		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "sweep_failures_total",
			Help:      "Per-vendor sweep updates that failed",
		}),
		QueueJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Queue jobs processed, by type and outcome",
		}, []string{"type", "outcome"}),
		RateLimitRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}
