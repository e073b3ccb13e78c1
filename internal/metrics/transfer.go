// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamebot_transfers_total",
		Help: "Completed transfer operations by outcome",
	}, []string{"outcome"}) // outcome=success|cancelled|failed

	transferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "renamebot_transfer_duration_seconds",
		Help:    "Wall-clock duration of transfer operations by outcome",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"outcome"})

	transferBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamebot_transfer_bytes_total",
		Help: "Bytes moved by transfer operations by direction",
	}, []string{"direction"}) // direction=download|upload

	activeOperations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "renamebot_active_operations",
		Help: "Transfer operations currently registered",
	})

	statusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamebot_status_updates_total",
		Help: "Outbound progress status updates by result",
	}, []string{"result"}) // result=sent|error|dropped
)

var knownOutcomes = map[string]struct{}{
	"success":   {},
	"cancelled": {},
	"failed":    {},
}

func normalizeOutcome(outcome string) string {
	if _, ok := knownOutcomes[outcome]; ok {
		return outcome
	}
	return "unknown"
}

// RecordTransfer records a finished transfer and its duration.
func RecordTransfer(outcome string, d time.Duration) {
	outcome = normalizeOutcome(outcome)
	transfersTotal.WithLabelValues(outcome).Inc()
	transferDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// AddTransferBytes adds moved bytes for a direction. Negative deltas are ignored.
func AddTransferBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	if direction != "download" && direction != "upload" {
		direction = "unknown"
	}
	transferBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// SetActiveOperations sets the number of registered operations.
func SetActiveOperations(n int) {
	activeOperations.Set(float64(n))
}

// IncStatusUpdate records the result of one outbound status update.
func IncStatusUpdate(result string) {
	switch result {
	case "sent", "error", "dropped":
	default:
		result = "unknown"
	}
	statusUpdatesTotal.WithLabelValues(result).Inc()
}
