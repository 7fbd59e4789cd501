// Package metrics exposes Prometheus instrumentation for the login and
// transfer paths.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalid        = "invalid"
	OutcomeRejected       = "rejected"
	OutcomeNotFound       = "not_found"
	OutcomeInsufficient   = "insufficient_funds"
	OutcomeStorageFailure = "storage_error"
	OutcomeError          = "error"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankcore_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// loginDuration should be flat: every outcome is held to the same floor.
	loginDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bankcore_login_duration_seconds",
		Help:    "Wall-clock login latency in seconds",
		Buckets: []float64{0.25, 0.5, 0.9, 1, 1.1, 1.5, 2, 5},
	}, []string{"outcome"})

	transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankcore_transfers_total",
		Help: "Transfer requests by outcome",
	}, []string{"outcome"})

	transferAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bankcore_transfer_amount_minor_units",
		Help:    "Amount of committed transfers in minor units",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 750, 1000},
	})
)

// RecordLogin counts a login attempt and its latency.
func RecordLogin(outcome string, elapsed time.Duration) {
	loginAttempts.WithLabelValues(outcome).Inc()
	loginDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordTransfer counts a transfer attempt; amount is observed only for
// committed transfers.
func RecordTransfer(outcome string, amount int64) {
	transfers.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		transferAmount.Observe(float64(amount))
	}
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
