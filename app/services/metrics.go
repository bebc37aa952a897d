package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Print job results
const (
	resultOK     = "ok"
	resultFailed = "failed"
	resultPanic  = "panic"
)

// Metrics holds the terminal's counters on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	PrintJobs     *prometheus.CounterVec
	PrintDuration *prometheus.HistogramVec
	LedgerOps     *prometheus.CounterVec
	OpenOrders    prometheus.Gauge
	FeedClients   prometheus.Gauge
}

// NewMetrics creates and registers the counters
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PrintJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eorders_print_jobs_total",
				Help: "Print jobs by receipt kind, transport and result",
			},
			[]string{"job", "transport", "result"},
		),
		PrintDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eorders_print_duration_seconds",
				Help:    "Duration of print jobs including the settle delay",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport"},
		),
		LedgerOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eorders_ledger_operations_total",
				Help: "Accepted order ledger operations",
			},
			[]string{"op"},
		),
		OpenOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eorders_open_orders",
			Help: "Tables with an open order",
		}),
		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eorders_feed_clients",
			Help: "Connected bar feed clients",
		}),
	}
	m.registry.MustRegister(m.PrintJobs, m.PrintDuration, m.LedgerOps, m.OpenOrders, m.FeedClients)
	return m
}

// Registry exposes the registry for scraping
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
