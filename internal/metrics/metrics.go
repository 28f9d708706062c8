package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service metrics on a private prometheus registry.
// All recording methods are safe on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	SyncTotal           *prometheus.CounterVec
	CatalogReads        *prometheus.CounterVec
	TransactionsCreated prometheus.Counter
	TransactionsSettled prometheus.Counter
	SettleLagSec        prometheus.Histogram
	EventsPublishFailed prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	syncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topup_catalog_sync_total",
		Help: "Catalog sync attempts by outcome.",
	}, []string{"outcome"})
	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topup_catalog_reads_total",
		Help: "Catalog reads by data source.",
	}, []string{"source"})
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "topup_transactions_created_total"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{Name: "topup_transactions_settled_total"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "topup_settlement_lag_seconds",
		Help:    "Delay between a settlement task falling due and its completion.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	})
	publishFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "topup_events_publish_failed_total"})

	r.MustRegister(syncTotal, reads, created, settled, lag, publishFailed)
	return &Registry{
		reg:                 r,
		SyncTotal:           syncTotal,
		CatalogReads:        reads,
		TransactionsCreated: created,
		TransactionsSettled: settled,
		SettleLagSec:        lag,
		EventsPublishFailed: publishFailed,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) ObserveSync(outcome string) {
	if r == nil {
		return
	}
	r.SyncTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveRead(source string) {
	if r == nil {
		return
	}
	r.CatalogReads.WithLabelValues(source).Inc()
}

func (r *Registry) ObserveCreated() {
	if r == nil {
		return
	}
	r.TransactionsCreated.Inc()
}

func (r *Registry) ObserveSettled(lagSec float64) {
	if r == nil {
		return
	}
	r.TransactionsSettled.Inc()
	if lagSec < 0 {
		lagSec = 0
	}
	r.SettleLagSec.Observe(lagSec)
}

func (r *Registry) ObservePublishFailed() {
	if r == nil {
		return
	}
	r.EventsPublishFailed.Inc()
}
