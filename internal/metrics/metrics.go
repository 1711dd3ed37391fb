package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_reservations_total",
			Help: "Ticket reservation attempts by result",
		},
		[]string{"result"},
	)

	releasedHolds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_holds_released_total",
			Help: "Reserved tickets released, by reason",
		},
		[]string{"reason"},
	)

	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Purchase attempts by result",
		},
		[]string{"result"},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Tickets sold through completed purchases",
		},
	)

	activeCarts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopping_carts_active",
			Help: "Shopping carts currently holding tickets",
		},
	)

	paymentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_call_duration_seconds",
			Help:    "Duration of payment collaborator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	receiptsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purchase_receipts_issued_total",
			Help: "Purchase receipts processed by the receipt worker",
		},
	)
)

func RecordReservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

func RecordReleased(reason string, n int) {
	if n <= 0 {
		return
	}
	releasedHolds.WithLabelValues(reason).Add(float64(n))
}

func RecordPurchase(result string, sold int) {
	purchases.WithLabelValues(result).Inc()
	if sold > 0 {
		ticketsSold.Add(float64(sold))
	}
}

func SetActiveCarts(n int) {
	activeCarts.Set(float64(n))
}

func ObservePayment(operation string, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	paymentDuration.WithLabelValues(operation, status).Observe(seconds)
}

func RecordReceiptIssued() {
	receiptsIssued.Inc()
}
