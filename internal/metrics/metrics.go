package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

var CampaignsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "leadflow_campaigns_created_total",
		Help: "Total number of campaigns persisted",
	},
)

var DispatchAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "leadflow_dispatch_attempts_total",
		Help: "Enrichment dispatch attempts by outcome",
	},
	[]string{"outcome"},
)

var DispatchLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "leadflow_dispatch_latency_seconds",
		Help:    "Latency of the outbound workflow engine call",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

var GateDenials = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "leadflow_gate_denials_total",
		Help: "Campaign creations rejected by the credential gate",
	},
)

// Init registers the collectors and returns the scrape handler.
func Init() http.Handler {
	prometheus.MustRegister(CampaignsCreated, DispatchAttempts, DispatchLatency, GateDenials)
	return promhttp.Handler()
}
