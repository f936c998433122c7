package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionSource reports the live session for the Collector.
type SessionSource interface {
	StateName() string
	Expiry() time.Time
}

// Collector exports the state of a session at scrape time.
type Collector struct {
	src SessionSource
	now func() time.Time

	state     *prometheus.Desc
	remaining *prometheus.Desc
}

// NewCollector creates a collector reading from src.
func NewCollector(src SessionSource) *Collector {
	return &Collector{
		src: src,
		now: time.Now,
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "state"),
			"Current session state (1 for the active state).",
			[]string{"state"}, nil,
		),
		remaining: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "token_remaining_seconds"),
			"Seconds until the current token expires, 0 without a token.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.remaining
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, c.src.StateName())

	remaining := 0.0
	if exp := c.src.Expiry(); !exp.IsZero() {
		if d := exp.Sub(c.now()); d > 0 {
			remaining = d.Seconds()
		}
	}
	ch <- prometheus.MustNewConstMetric(c.remaining, prometheus.GaugeValue, remaining)
}
