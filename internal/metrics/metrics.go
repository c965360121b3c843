// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_frames_completed_total",
			Help: "Total number of complete frames assembled from the transport",
		},
	)

	FrameParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_frame_parse_errors_total",
			Help: "Total number of balanced frames that failed to parse",
		},
	)

	FramerResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_framer_resets_total",
			Help: "Total number of discarded partial frames",
		},
		[]string{"reason"},
	)

	FramesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_frames_dispatched_total",
			Help: "Total number of frames routed by the dispatcher",
		},
		[]string{"work_id", "action"},
	)

	EnvelopesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_envelopes_sent_total",
			Help: "Total number of envelopes written to the transport",
		},
		[]string{"object", "code"},
	)

	StreamDeltas = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_stream_deltas_total",
			Help: "Total number of inference deltas relayed",
		},
	)

	StreamTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_stream_truncations_total",
			Help: "Total number of stream line buffer truncations",
		},
	)

	StreamSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_stream_sessions_total",
			Help: "Total number of streaming sessions by result",
		},
		[]string{"model", "result"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmbridge_backend_request_duration_seconds",
			Help:    "Time taken for backend calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 40, 50, 75, 100},
		},
		[]string{"endpoint"},
	)

	TransportReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_transport_reconnects_total",
			Help: "Total number of transport reopen attempts",
		},
	)

	ForwardErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbridge_forward_errors_total",
			Help: "Total number of failed secondary sink forwards",
		},
	)
)
