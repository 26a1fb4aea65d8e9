// Package metrics exposes Prometheus counters and gauges for the receiver
// pipeline: sync acquisitions, NID correction outcomes, sync losses, and
// the symbol-timing loop's tracked baud rate. It's opt-in ambient
// plumbing, served over /metrics only when a caller wires an HTTP server
// to Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric this receiver reports.
type Collector struct {
	reg *prometheus.Registry

	SyncAcquisitionsTotal prometheus.Counter
	ValidNIDTotal         prometheus.Counter
	InvalidNIDTotal       prometheus.Counter
	SyncLossTotal         prometheus.Counter
	FramedPayloadsTotal   *prometheus.CounterVec

	ObservedSamplesPerSymbol prometheus.Gauge
}

// New creates a Collector against its own registry, so a process can hold
// more than one (or a test suite can construct several) without the
// duplicate-registration panic promauto's package-level default registerer
// would otherwise trigger.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		reg: reg,
		SyncAcquisitionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25_sync_acquisitions_total",
			Help: "Total number of sync-pattern acquisitions accepted by the timing loop.",
		}),
		ValidNIDTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25_nid_valid_total",
			Help: "Total number of NIDs that decoded cleanly or were BCH-corrected.",
		}),
		InvalidNIDTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25_nid_invalid_total",
			Help: "Total number of NIDs that were uncorrectable and fell back to a placeholder DUID.",
		}),
		SyncLossTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25_sync_loss_total",
			Help: "Total number of sync-loss events emitted while idle.",
		}),
		FramedPayloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p25_framed_payloads_total",
			Help: "Total number of framed payloads delivered, by DUID.",
		}, []string{"duid"}),
		ObservedSamplesPerSymbol: factory.NewGauge(prometheus.GaugeOpts{
			Name: "p25_observed_samples_per_symbol",
			Help: "The symbol-timing loop's currently tracked samples-per-symbol baud estimate.",
		}),
	}
}

// Handler returns the HTTP handler to serve this Collector's registered
// metrics from, for mounting at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
