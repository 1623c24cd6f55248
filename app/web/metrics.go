package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics keeps its own registry, jobs by status are read from the store at collect time
type metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
}

func newMetrics(store JobStore) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobtracker",
			Name:      "operations_total",
			Help:      "Number of store operations by type and result.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(m.ops, newJobsCollector(store))
	return m
}

// op counts a store operation
func (m *metrics) op(name string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(name, result).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// jobsCollector reports store counts as const metrics, nothing is kept between scrapes
type jobsCollector struct {
	desc  *prometheus.Desc
	store JobStore
}

func newJobsCollector(store JobStore) *jobsCollector {
	return &jobsCollector{
		desc:  prometheus.NewDesc("jobtracker_jobs", "Number of tracked jobs by status.", []string{"status"}, nil),
		store: store,
	}
}

// Describe implements prometheus.Collector
func (c *jobsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector
func (c *jobsCollector) Collect(ch chan<- prometheus.Metric) {
	for st, n := range c.store.Counts() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), string(st))
	}
}
