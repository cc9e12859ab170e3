// Package metrics defines the Prometheus collectors for the compliment core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationTotal counts service operations by name and outcome code
	operationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_operation_total",
		Help: "Total service operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// operationDuration tracks operation latency including lock wait
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oomf_operation_duration_seconds",
		Help:    "Service operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"operation"})

	// guessTotal counts counted guesses by correctness
	guessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_guess_total",
		Help: "Total counted guesses by result",
	}, []string{"result"})

	// revealTotal counts compliment disclosures by cause
	revealTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_reveal_total",
		Help: "Total compliment reveals by cause",
	}, []string{"cause"})

	// tokensSpent sums tokens debited by purchase type
	tokensSpent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_tokens_spent_total",
		Help: "Total tokens debited by transaction type",
	}, []string{"type"})

	// tokensCredited sums tokens credited by transaction type
	tokensCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_tokens_credited_total",
		Help: "Total tokens credited by transaction type",
	}, []string{"type"})

	// notifyErrors counts failed event deliveries
	notifyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oomf_notify_errors_total",
		Help: "Total failed notification deliveries by event type",
	}, []string{"event"})
)

// ObserveOperation records one finished operation.
func ObserveOperation(operation, outcome string, took time.Duration) {
	operationTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// Guess records a counted guess.
func Guess(correct bool) {
	result := "wrong"
	if correct {
		result = "correct"
	}
	guessTotal.WithLabelValues(result).Inc()
}

// Reveal records a compliment disclosure.
func Reveal(cause string) {
	revealTotal.WithLabelValues(cause).Inc()
}

// TokensSpent records a debit.
func TokensSpent(txType string, amount int64) {
	tokensSpent.WithLabelValues(txType).Add(float64(amount))
}

// TokensCredited records a credit.
func TokensCredited(txType string, amount int64) {
	tokensCredited.WithLabelValues(txType).Add(float64(amount))
}

// NotifyError records a failed event delivery.
func NotifyError(event string) {
	notifyErrors.WithLabelValues(event).Inc()
}
