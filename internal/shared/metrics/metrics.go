package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SeatReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_seat_reservations_total",
			Help: "Seat hold attempts by outcome",
		},
		[]string{"outcome"},
	)

	TicketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_ticket_transitions_total",
			Help: "Effective ticket status transitions",
		},
		[]string{"from", "to"},
	)

	PaymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_payment_events_total",
			Help: "Payment confirmations and webhooks by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	InventoryInconsistencies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_inventory_inconsistency_total",
			Help: "Paid tickets whose seats could not be occupied",
		},
	)

	SweepReleasedSeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_sweep_released_seats_total",
			Help: "Seats released by the expiry sweep",
		},
	)

	SweepFailedTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_sweep_failed_tickets_total",
			Help: "Tickets failed by the expiry sweep",
		},
	)

	SweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_sweep_errors_total",
			Help: "Records the expiry sweep could not process",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketing_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	CreditsDeducted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_credits_deducted_total",
			Help: "Publish credits consumed",
		},
	)
)

// Handler exposes the registry for scraping
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
