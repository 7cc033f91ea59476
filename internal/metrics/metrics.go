// Package metrics exposes prometheus instrumentation for the topology lab.
//
// All Record/Set methods are safe on a nil *Registry so core packages can
// take an optional registry without guarding every call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation
	PacketsGenerated prometheus.Counter
	PacketsDelivered prometheus.Counter
	PacketsSkipped   prometheus.Counter
	BytesGenerated   prometheus.Counter
	PacketsInFlight  prometheus.Gauge
	PacketsByProto   *prometheus.CounterVec

	// Topology
	ComponentsTotal  prometheus.Gauge
	ConnectionsTotal prometheus.Gauge
	RuleRejections   prometheus.Counter

	// Faults
	ActiveProblems *prometheus.GaugeVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}
	r.initSimulationMetrics()
	r.initTopologyMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initSimulationMetrics() {
	f := promauto.With(r.registry)

	r.PacketsGenerated = f.NewCounter(prometheus.CounterOpts{
		Name: "topolab_packets_generated_total",
		Help: "Packets created by the simulation scheduler",
	})
	r.PacketsDelivered = f.NewCounter(prometheus.CounterOpts{
		Name: "topolab_packets_delivered_total",
		Help: "Packets that reached the far client",
	})
	r.PacketsSkipped = f.NewCounter(prometheus.CounterOpts{
		Name: "topolab_packets_skipped_total",
		Help: "Generation ticks that found no path between the clients",
	})
	r.BytesGenerated = f.NewCounter(prometheus.CounterOpts{
		Name: "topolab_bytes_generated_total",
		Help: "Payload bytes of generated packets",
	})
	r.PacketsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "topolab_packets_in_flight",
		Help: "Packets currently being animated",
	})
	r.PacketsByProto = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topolab_packets_by_protocol_total",
			Help: "Generated packets per transport label",
		},
		[]string{"protocol"},
	)
}

func (r *Registry) initTopologyMetrics() {
	f := promauto.With(r.registry)

	r.ComponentsTotal = f.NewGauge(prometheus.GaugeOpts{
		Name: "topolab_components",
		Help: "Components in the topology",
	})
	r.ConnectionsTotal = f.NewGauge(prometheus.GaugeOpts{
		Name: "topolab_connections",
		Help: "Connections in the topology",
	})
	r.RuleRejections = f.NewCounter(prometheus.CounterOpts{
		Name: "topolab_rule_rejections_total",
		Help: "Connection attempts refused by the rule table",
	})
	r.ActiveProblems = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "topolab_active_problems",
			Help: "Active injected problems by severity",
		},
		[]string{"severity"},
	)
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topolab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topolab_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordPacket records a generated packet
func (r *Registry) RecordPacket(protocol string, bytes int) {
	if r == nil {
		return
	}
	r.PacketsGenerated.Inc()
	r.BytesGenerated.Add(float64(bytes))
	r.PacketsByProto.WithLabelValues(protocol).Inc()
}

// RecordDelivered records packets arriving at their destination
func (r *Registry) RecordDelivered(n int) {
	if r == nil || n == 0 {
		return
	}
	r.PacketsDelivered.Add(float64(n))
}

// RecordSkipped records a generation tick without a route
func (r *Registry) RecordSkipped() {
	if r == nil {
		return
	}
	r.PacketsSkipped.Inc()
}

// SetInFlight sets the in-flight packet gauge
func (r *Registry) SetInFlight(n int) {
	if r == nil {
		return
	}
	r.PacketsInFlight.Set(float64(n))
}

// SetTopologySize updates the component and connection gauges
func (r *Registry) SetTopologySize(components, connections int) {
	if r == nil {
		return
	}
	r.ComponentsTotal.Set(float64(components))
	r.ConnectionsTotal.Set(float64(connections))
}

// RecordRuleRejection counts a refused connection
func (r *Registry) RecordRuleRejection() {
	if r == nil {
		return
	}
	r.RuleRejections.Inc()
}

// SetActiveProblems replaces the per-severity problem gauges
func (r *Registry) SetActiveProblems(bySeverity map[string]int) {
	if r == nil {
		return
	}
	for severity, n := range bySeverity {
		r.ActiveProblems.WithLabelValues(severity).Set(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
