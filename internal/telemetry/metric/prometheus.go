package metric

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "wazuh_cli"

// Registry holds all client metrics.
//
// A nil *Registry is valid and records nothing, so components can be built
// without metrics in tests.
type Registry struct {
	reg *prometheus.Registry

	// Transport metrics
	RequestsTotal   *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	AuthExchanges   *prometheus.CounterVec
	AuthRejections  prometheus.Counter
	TokenRefreshes  prometheus.Counter
	SessionWaiters  prometheus.Counter

	// Batch metrics
	BatchItems *prometheus.CounterVec
}

// NewRegistry creates a registry with every client metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Logical requests by method and outcome.",
		}, []string{"method", "outcome"}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "attempts_total",
			Help:      "HTTP attempts by method and status class.",
		}, []string{"method", "class"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "retries_total",
			Help:      "Retried attempts by method.",
		}, []string{"method"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Latency of logical requests including retries.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		AuthExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_exchanges_total",
			Help:      "Credential exchanges by result.",
		}, []string{"result"}),
		AuthRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "rejections_total",
			Help:      "Requests rejected with 401 by the API.",
		}),
		TokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Exchanges that replaced an existing token.",
		}),
		SessionWaiters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "shared_waits_total",
			Help:      "Callers that waited on an exchange started by another caller.",
		}),
		BatchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Batch targets by operation and result.",
		}, []string{"op", "result"}),
	}

	r.reg.MustRegister(
		r.RequestsTotal,
		r.AttemptsTotal,
		r.RetriesTotal,
		r.RequestDuration,
		r.AuthExchanges,
		r.AuthRejections,
		r.TokenRefreshes,
		r.SessionWaiters,
		r.BatchItems,
		collectors.NewGoCollector(),
	)
	return r
}

// Register adds an extra collector, e.g. a session Collector.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(c)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveRequest records the outcome of one logical request.
func (r *Registry) ObserveRequest(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, outcome).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveAttempt records one HTTP attempt. status 0 means no response.
func (r *Registry) ObserveAttempt(method string, status int) {
	if r == nil {
		return
	}
	r.AttemptsTotal.WithLabelValues(method, statusClass(status)).Inc()
}

// IncRetry records a retried attempt.
func (r *Registry) IncRetry(method string) {
	if r == nil {
		return
	}
	r.RetriesTotal.WithLabelValues(method).Inc()
}

// ObserveAuth records a credential exchange. refresh is true when a
// previous token was replaced.
func (r *Registry) ObserveAuth(err error, refresh bool) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.AuthExchanges.WithLabelValues(result).Inc()
	if err == nil && refresh {
		r.TokenRefreshes.Inc()
	}
}

// IncRejection records a 401 from the API.
func (r *Registry) IncRejection() {
	if r == nil {
		return
	}
	r.AuthRejections.Inc()
}

// IncSharedWait records a caller that joined an exchange in flight.
func (r *Registry) IncSharedWait() {
	if r == nil {
		return
	}
	r.SessionWaiters.Inc()
}

// ObserveBatchItem records one batch target result.
func (r *Registry) ObserveBatchItem(op string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.BatchItems.WithLabelValues(op, result).Inc()
}

// WriteTextfile writes all metrics to path in the node_exporter
// textfile-collector format.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot returns the current value of every client counter, sorted by
// name. Histograms are reported as their sample count. Go runtime metrics
// are skipped.
func (r *Registry) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := Sample{Name: name, Labels: formatLabels(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
