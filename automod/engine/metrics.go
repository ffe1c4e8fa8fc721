package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("automod")

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "turnstile_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "turnstile_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "turnstile_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_verify_challenges_issued",
	Help: "Number of verification questions posted to new members",
})

var verifyOutcomeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "turnstile_verify_outcomes",
	Help: "Number of verifications resolved, by outcome",
}, []string{"outcome"})

var pendingVerifications = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "turnstile_verify_pending",
	Help: "Number of members currently awaiting verification",
})

var wrongAnswerCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_verify_wrong_answers",
	Help: "Number of incorrect verification answers",
})

var messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_messages_deleted",
	Help: "Number of messages deleted by the content filter",
})

var kickCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_kicks",
	Help: "Number of members kicked by moderator command",
})

var transportErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "turnstile_chat_api_errors",
	Help: "Number of failed chat service API calls, by operation",
}, []string{"op"})
