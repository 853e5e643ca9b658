// Package metrics wraps a Prometheus registry with the broker's
// observability surface. Constructing a Registry is optional; every
// caller-facing method is safe to call on a nil *Registry (a no-op),
// so a broker built without metrics runs identically, just unobserved.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	connectionsAccepted prometheus.Counter
	connectionsRejected prometheus.Counter
	connectionsActive   prometheus.Gauge
	packetsReceived     *prometheus.CounterVec
	packetsSent         *prometheus.CounterVec
	fanoutDuration      prometheus.Histogram
	storeOps            *prometheus.CounterVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ax_connections_accepted_total",
			Help: "Total TCP connections accepted by the broker listener.",
		}),
		connectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ax_connections_rejected_total",
			Help: "Total TCP connections rejected (pool at capacity).",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ax_connections_active",
			Help: "Currently active connections.",
		}),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ax_packets_received_total",
			Help: "Packets received by kind.",
		}, []string{"kind"}),
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ax_packets_sent_total",
			Help: "Packets sent by kind.",
		}, []string{"kind"}),
		fanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ax_fanout_duration_seconds",
			Help:    "Time spent fanning a PUBLISH out to its subscribers.",
			Buckets: prometheus.DefBuckets,
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ax_session_store_operations_total",
			Help: "Session store operations by op and backend.",
		}, []string{"op", "backend"}),
	}

	reg.MustRegister(
		r.connectionsAccepted, r.connectionsRejected, r.connectionsActive,
		r.packetsReceived, r.packetsSent, r.fanoutDuration, r.storeOps,
	)
	return r
}

// Handler returns the promhttp handler for the registry, to be mounted
// on an optional metrics listener address.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ConnectionAccepted() {
	if r == nil {
		return
	}
	r.connectionsAccepted.Inc()
	r.connectionsActive.Inc()
}

func (r *Registry) ConnectionRejected() {
	if r == nil {
		return
	}
	r.connectionsRejected.Inc()
}

func (r *Registry) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connectionsActive.Dec()
}

func (r *Registry) PacketReceived(kind string) {
	if r == nil {
		return
	}
	r.packetsReceived.WithLabelValues(kind).Inc()
}

func (r *Registry) PacketSent(kind string) {
	if r == nil {
		return
	}
	r.packetsSent.WithLabelValues(kind).Inc()
}

// ObserveFanout times a PUBLISH fan-out; call the returned func when the
// write loop over subscribers completes.
func (r *Registry) ObserveFanout() func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		r.fanoutDuration.Observe(time.Since(start).Seconds())
	}
}

func (r *Registry) StoreOperation(op, backend string) {
	if r == nil {
		return
	}
	r.storeOps.WithLabelValues(op, backend).Inc()
}
