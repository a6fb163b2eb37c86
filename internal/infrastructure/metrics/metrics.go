package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (o Outcome) String() string {
	return string(o)
}

var (
	once sync.Once

	defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

	activityRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensgraph_activity_requests_total",
			Help: "Activity requests by how they were served (cached, refreshed, stale, demo).",
		},
		[]string{"outcome"},
	)

	explorerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ensgraph_explorer_request_duration_seconds",
			Help:    "Histogram of block explorer request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"action", "status"},
	)

	edgeMutationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensgraph_edge_mutations_total",
			Help: "Edge mutations by operation and outcome (success, rollback, local).",
		},
		[]string{"op", "outcome"},
	)
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			activityRequestsCounter,
			explorerRequestDuration,
			edgeMutationsCounter,
		)
	})
}

// Handler serves the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordActivityRequest(outcome string) {
	activityRequestsCounter.WithLabelValues(outcome).Inc()
}

func RecordExplorerRequest(d time.Duration, action string, failure bool) {
	status := Success
	if failure {
		status = Error
	}
	explorerRequestDuration.WithLabelValues(action, status.String()).Observe(d.Seconds())
}

func RecordEdgeMutation(op, outcome string) {
	edgeMutationsCounter.WithLabelValues(op, outcome).Inc()
}
