package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the engine's instrumentation. One set per engine;
// tests pass their own registry to keep registration collision-free.
type metrics struct {
	frames       prometheus.Counter
	records      *prometheus.CounterVec
	dropped      prometheus.Counter
	duplicates   prometheus.Counter
	commands     prometheus.Counter
	reconnects   prometheus.Counter
	idleTimeouts prometheus.Counter
	busDrops     prometheus.Counter
	backlogRuns  prometheus.Counter
	state        prometheus.Gauge
	pending      prometheus.Gauge
	oobDepth     prometheus.Gauge
	lagSeconds   prometheus.Gauge
	clockOffset  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &metrics{
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "frames_total",
			Help: "Frames received on the stream.",
		}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "records_total",
			Help: "Decoded records by event type.",
		}, []string{"type"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "records_dropped_total",
			Help: "Records dropped as malformed.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "events_duplicate_total",
			Help: "Buffer events dropped as replays at or below the seen cursor.",
		}),
		commands: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "commands_sent_total",
			Help: "Commands written to the stream.",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "reconnects_total",
			Help: "Reconnect cycles triggered by connection loss.",
		}),
		idleTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "idle_timeouts_total",
			Help: "Streams declared dead for missing idle traffic.",
		}),
		busDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "notifications_dropped_total",
			Help: "Notifications dropped on full subscriber channels.",
		}),
		backlogRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "backlog_passes_total",
			Help: "Backlog catch-up passes started.",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "connection_state",
			Help: "Current state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "pending_requests",
			Help: "Commands awaiting a response.",
		}),
		oobDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "oob_queue_depth",
			Help: "Commands queued for the next connection.",
		}),
		lagSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "heartbeat_lag_seconds",
			Help: "Round trip of the latest acknowledged heartbeat.",
		}),
		clockOffset: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lantern", Subsystem: "engine",
			Name: "clock_offset_seconds",
			Help: "Smoothed server clock offset.",
		}),
	}
}
