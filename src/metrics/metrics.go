package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns tracks create-or-report outcomes by terminal status
	// (created, already_exists, rejected, failed, not_found)
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchasesync_runs_total",
		Help: "Total number of synchronization runs by terminal status",
	}, []string{"status"})

	// SignatureRejections counts inbound triggers dropped by HMAC verification
	SignatureRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchasesync_signature_rejections_total",
		Help: "Total number of webhook triggers rejected for a bad or missing signature",
	})

	// UpstreamRequestDuration measures outbound calls to Pyrus and B2B-Center
	// Use this to spot a slow or degraded remote dependency
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purchasesync_upstream_request_duration_seconds",
		Help:    "Duration of outbound requests to the source and target systems",
		Buckets: prometheus.DefBuckets,
	}, []string{"system", "operation", "code"})

	// JournalHits counts runs answered from the local sync journal without
	// touching B2B-Center
	JournalHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchasesync_journal_hits_total",
		Help: "Total number of runs resolved from the local sync journal",
	})
)

// ObserveUpstreamRequest records one outbound API call.
func ObserveUpstreamRequest(system, operation string, statusCode int, elapsed time.Duration) {
	UpstreamRequestDuration.WithLabelValues(system, operation, strconv.Itoa(statusCode)).Observe(elapsed.Seconds())
}
