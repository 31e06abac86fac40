package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking saga operations by outcome",
		},
		[]string{"operation", "event_id", "status"},
	)

	couponRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemption attempts by outcome",
		},
		[]string{"event_id", "status"},
	)

	seatAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_adjustments_total",
			Help: "Seat inventory adjustments by outcome",
		},
		[]string{"event_id", "status"},
	)

	circuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0=closed, 1=half-open, 2=open)",
		},
		[]string{"circuit"},
	)
)

func TrackBookingOperation(operation, eventID, status string) {
	bookingOperations.WithLabelValues(operation, eventID, status).Inc()
}

func TrackCouponRedemption(eventID, status string) {
	couponRedemptions.WithLabelValues(eventID, status).Inc()
}

func TrackSeatAdjustment(eventID, status string) {
	seatAdjustments.WithLabelValues(eventID, status).Inc()
}

func SetCircuitState(circuit string, state int) {
	circuitState.WithLabelValues(circuit).Set(float64(state))
}
