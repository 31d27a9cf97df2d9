package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTotal counts booking attempts by outcome (ok, sold_out, seat_taken, invalid, error).
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "bookings_total",
			Help:      "The total number of booking attempts",
		},
		[]string{"outcome"},
	)

	// SeatsReserved counts seats taken out of pools.
	SeatsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "seats_reserved_total",
			Help:      "The total number of seats reserved from pools",
		},
	)

	// SeatsReleased counts seats returned to pools by reason (compensation, cancel, expiry).
	SeatsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "seats_released_total",
			Help:      "The total number of seats returned to pools",
		},
		[]string{"reason"},
	)

	SeatReleaseOverflow = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "seat_release_overflow_total",
			Help:      "Releases clamped at the pool capacity",
		},
	)

	// TicketTransitions counts ticket status changes by target status and result (applied, stale, replay, failed).
	TicketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "ticket_transitions_total",
			Help:      "The total number of ticket status transitions",
		},
		[]string{"to", "result"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "seatbooking",
			Name:      "reclaim_sweep_duration_seconds",
			Help:      "Time spent in one expiry sweep",
			Buckets:   prometheus.DefBuckets,
		},
	)

	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "messages_processed_total",
			Help:      "The total number of consumed messages",
		},
		[]string{"topic", "result"},
	)
)
