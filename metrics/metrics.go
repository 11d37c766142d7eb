package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_bookings_created_total",
		Help: "Bookings created, by kind (quick or standard)",
	}, []string{"kind"})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_booking_conflicts_total",
		Help: "Booking attempts rejected because the spot was already booked",
	})

	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_booking_transitions_total",
		Help: "Booking status changes, by target status",
	}, []string{"status"})

	PaymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_payments_initiated_total",
		Help: "Payment initiations, by gateway and outcome",
	}, []string{"gateway", "outcome"})

	GatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parking_gateway_request_duration_seconds",
		Help:    "Time taken by external gateway calls",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"gateway"})

	OTPsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_otp_sms_total",
		Help: "OTP SMS sends, by outcome",
	}, []string{"outcome"})
)
