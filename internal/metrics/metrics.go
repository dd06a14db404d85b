package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice_relay"

// Relay directions used as the "direction" label.
const (
	DirectionToUpstream  = "to_upstream"
	DirectionToTelephony = "to_telephony"
)

// Relay legs used as the "leg" label.
const (
	LegInbound  = "inbound"
	LegOutbound = "outbound"
)

// Metrics holds the collectors exported by the relay. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	ActiveCalls         prometheus.Gauge
	AudioChunks         *prometheus.CounterVec
	Interruptions       prometheus.Counter
	Truncations         prometheus.Counter
	UpstreamConnects    *prometheus.CounterVec
	EventErrors         *prometheus.CounterVec
	CallsTerminated     *prometheus.CounterVec
	TranscriptsRecorded prometheus.Counter
}

// New creates and registers all relay collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of media streams currently being relayed",
		}),
		AudioChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_total",
			Help:      "Audio chunks relayed, by direction",
		}, []string{"direction"}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Caller barge-in events handled",
		}),
		Truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncations_total",
			Help:      "Truncate instructions sent to the AI service",
		}),
		UpstreamConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_connect_attempts_total",
			Help:      "Connection attempts to the AI service, by result",
		}, []string{"result"}),
		EventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Events dropped because they could not be processed, by relay leg",
		}, []string{"leg"}),
		CallsTerminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_terminated_total",
			Help:      "Call termination requests sent to the telephony provider, by result",
		}, []string{"result"}),
		TranscriptsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_recorded_total",
			Help:      "Conversation turns appended to the transcript log",
		}),
	}

	m.registry.MustRegister(
		m.ActiveCalls,
		m.AudioChunks,
		m.Interruptions,
		m.Truncations,
		m.UpstreamConnects,
		m.EventErrors,
		m.CallsTerminated,
		m.TranscriptsRecorded,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.ActiveCalls.Inc()
}

func (m *Metrics) CallEnded() {
	if m == nil {
		return
	}
	m.ActiveCalls.Dec()
}

func (m *Metrics) ChunkRelayed(direction string) {
	if m == nil {
		return
	}
	m.AudioChunks.WithLabelValues(direction).Inc()
}

// Interrupted records one barge-in and whether a truncation was sent for it.
func (m *Metrics) Interrupted(truncated bool) {
	if m == nil {
		return
	}
	m.Interruptions.Inc()
	if truncated {
		m.Truncations.Inc()
	}
}

func (m *Metrics) UpstreamConnect(result string) {
	if m == nil {
		return
	}
	m.UpstreamConnects.WithLabelValues(result).Inc()
}

func (m *Metrics) EventError(leg string) {
	if m == nil {
		return
	}
	m.EventErrors.WithLabelValues(leg).Inc()
}

func (m *Metrics) CallTerminated(result string) {
	if m == nil {
		return
	}
	m.CallsTerminated.WithLabelValues(result).Inc()
}

func (m *Metrics) TranscriptRecorded() {
	if m == nil {
		return
	}
	m.TranscriptsRecorded.Inc()
}
