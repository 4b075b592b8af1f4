// Package metrics registers the application's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	ReloadRuns         *prometheus.CounterVec
	FacilitiesReloaded *prometheus.CounterVec
	ProblemsRecorded   prometheus.Counter
	OverlayUpserts     prometheus.Counter
	LiveFacilities     prometheus.Gauge
	GraveyardSize      prometheus.Gauge
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		ReloadRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facreg_reload_runs_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		FacilitiesReloaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facreg_reload_facilities_total",
			Help: "Facilities processed per reconciliation disposition.",
		}, []string{"disposition"}),
		ProblemsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facreg_reload_problems_total",
			Help: "Data quality problems recorded during reconciliation.",
		}),
		OverlayUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facreg_overlay_upserts_total",
			Help: "Administrator overlay upserts.",
		}),
		LiveFacilities: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facreg_live_facilities",
			Help: "Facility rows in the live registry after the last reload.",
		}),
		GraveyardSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facreg_graveyard_facilities",
			Help: "Facility rows in the graveyard after the last reload.",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
