package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the counters for a single run. Each run owns its registry
// since the process exits afterwards and pushes instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	ItemsTotal    *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	LastRun       prometheus.Gauge
	RunDuration   prometheus.Gauge
	CacheSize     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "freeleech_items_total",
			Help: "Freeleech items processed, by outcome",
		}, []string{"outcome"}), // seen, filtered, invalid, new
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "freeleech_failures_total",
			Help: "Failed pipeline steps",
		}, []string{"step"}), // notify, download, inject, persist
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freeleech_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freeleech_run_duration_seconds",
			Help: "Duration of the last run",
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freeleech_cache_ids",
			Help: "Ids held by the dedup cache",
		}),
	}
}

func (m *Metrics) IncItems(outcome string) {
	m.ItemsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFailures(step string) {
	m.FailuresTotal.WithLabelValues(step).Inc()
}

// Finish records the end of a run.
func (m *Metrics) Finish(start time.Time, cacheSize int) {
	m.LastRun.SetToCurrentTime()
	m.RunDuration.Set(time.Since(start).Seconds())
	m.CacheSize.Set(float64(cacheSize))
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Push sends the run metrics to a Pushgateway, replacing the job's group.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
