package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_frames_total",
			Help: "Frames processed, by outcome (present, absent, failed)",
		},
		[]string{"outcome"},
	)

	symbolsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_symbols_accepted_total",
			Help: "Symbols accepted by the debounce gate",
		},
		[]string{"symbol"},
	)

	symbolsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_symbols_suppressed_total",
			Help: "Classified symbols suppressed as repeats inside the cool-down",
		},
	)

	wordsCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_words_committed_total",
			Help: "Words committed to the sentence",
		},
	)

	notifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_notify_failures_total",
			Help: "Subscriber or commit hook calls that returned an error or panicked",
		},
		[]string{"target"},
	)

	notifyDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_notify_dropped_total",
			Help: "Subscriber updates superseded by a newer one, and commits dropped because the hook queue was full",
		},
		[]string{"target"},
	)
)
