package satiprtp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSet is the Prometheus instrumentation for one Core. Registered
// lazily — a Core created with Config.MetricsEnabled=false never touches
// the default registry.
type metricsSet struct {
	sessionsOpen   prometheus.Counter
	sessionsActive prometheus.Gauge
	rtpPacketsSent prometheus.Counter
	rtpBytesSent   prometheus.Counter
	rtpSendErrors  prometheus.Counter
	pidsDropped    prometheus.Counter
	rtcpSent       prometheus.Counter
	rtcpSendErrors prometheus.Counter
}

func newMetricsSet() *metricsSet {
	const ns, sub = "satiprtp", "core"
	return &metricsSet{
		sessionsOpen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "sessions_opened_total",
			Help: "Sessions opened over the lifetime of the process.",
		}),
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "sessions_active",
			Help: "Sessions currently registered and streaming.",
		}),
		rtpPacketsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rtp_datagrams_sent_total",
			Help: "RTP datagrams sent across all sessions.",
		}),
		rtpBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rtp_bytes_sent_total",
			Help: "RTP payload bytes sent across all sessions.",
		}),
		rtpSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rtp_send_errors_total",
			Help: "Fatal RTP send errors that ended a session's streamer.",
		}),
		pidsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "ts_packets_dropped_total",
			Help: "TS packets dropped by the PID filter.",
		}),
		rtcpSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rtcp_reports_sent_total",
			Help: "RTCP APP reports sent by the reporter.",
		}),
		rtcpSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rtcp_send_errors_total",
			Help: "RTCP send failures (non-fatal, logged per event).",
		}),
	}
}
