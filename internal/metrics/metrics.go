package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the session layer.
type Metrics struct {
	ActiveConnections     prometheus.Gauge
	AuthenticatedSessions prometheus.Gauge
	ActiveTransmissions   prometheus.Gauge

	ConnectionsTotal  prometheus.Counter
	DisconnectsTotal  prometheus.Counter
	EvictionsTotal    prometheus.Counter
	FramesReceived    *prometheus.CounterVec
	FramesSent        *prometheus.CounterVec
	BroadcastFanout   prometheus.Histogram
	AudioChunksTotal  prometheus.Counter
	DroppedSendsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talkie_active_connections",
			Help: "Current number of open client connections",
		}),
		AuthenticatedSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talkie_authenticated_sessions",
			Help: "Current number of authenticated sessions",
		}),
		ActiveTransmissions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talkie_active_transmissions",
			Help: "Current number of held speaker locks",
		}),
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talkie_connections_total",
			Help: "Total number of accepted connections",
		}),
		DisconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talkie_disconnects_total",
			Help: "Total number of closed connections",
		}),
		EvictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talkie_evictions_total",
			Help: "Total number of connections evicted by the liveness sweep",
		}),
		FramesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talkie_frames_received_total",
			Help: "Inbound frames by type",
		}, []string{"type"}),
		FramesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talkie_frames_sent_total",
			Help: "Outbound frames by type",
		}, []string{"type"}),
		BroadcastFanout: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talkie_broadcast_fanout",
			Help:    "Number of connections each broadcast was delivered to",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		AudioChunksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talkie_audio_chunks_total",
			Help: "Total number of relayed audio chunks",
		}),
		DroppedSendsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talkie_dropped_sends_total",
			Help: "Frames dropped because a client send buffer was full",
		}),
	}
}
