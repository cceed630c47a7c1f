package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal counts processed events by type
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "touchy_events_total",
		Help: "Total events processed by the engine loop, by type",
	}, []string{"type"})

	// messagesTotal counts MIDI messages by wire type and outcome
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "touchy_midi_messages_total",
		Help: "Total outbound MIDI messages by type and result",
	}, []string{"type", "result"})

	// resolveErrors counts rules skipped during resolution
	resolveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "touchy_resolve_errors_total",
		Help: "Total rules skipped during resolution, by error code",
	}, []string{"code"})

	// gatedSamples counts samples held back by a travel threshold
	gatedSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "touchy_gated_samples_total",
		Help: "Total rule evaluations suppressed by a travel threshold",
	})

	// decayTasks tracks the number of active pull-back tasks
	decayTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "touchy_decay_tasks",
		Help: "Active stepped-value pull-back tasks",
	})
)

// Message results.
const (
	resultSent       = "sent"
	resultMuted      = "muted"
	resultNoPort     = "no_port"
	resultSendFailed = "failed"
)
