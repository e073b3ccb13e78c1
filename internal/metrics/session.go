// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "renamebot_active_sessions",
		Help: "Rename sessions currently held in memory",
	})

	sessionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamebot_session_events_total",
		Help: "Session state machine events by event and result",
	}, []string{"event", "result"}) // result=applied|rejected

	inboundEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamebot_inbound_events_total",
		Help: "Inbound transport events by classification",
	}, []string{"kind"}) // kind=command|button|file|text|ignored
)

// SetActiveSessions sets the number of sessions in the registry.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// IncSessionEvent records a state machine event attempt.
func IncSessionEvent(event string, applied bool) {
	if event == "" {
		event = "unknown"
	}
	result := "rejected"
	if applied {
		result = "applied"
	}
	sessionEventsTotal.WithLabelValues(event, result).Inc()
}

// IncInbound records one classified inbound event.
func IncInbound(kind string) {
	switch kind {
	case "command", "button", "file", "text", "ignored":
	default:
		kind = "ignored"
	}
	inboundEventsTotal.WithLabelValues(kind).Inc()
}
