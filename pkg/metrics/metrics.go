package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts orders by terminal status.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "orders_total",
			Help:      "Orders reaching a terminal status",
		},
		[]string{"status"},
	)

	// ChargesTotal counts gateway charge outcomes.
	ChargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "charges_total",
			Help:      "Charge attempts by outcome",
		},
		[]string{"outcome"},
	)

	// HoldsSwept counts holds released by the expiry sweeper.
	HoldsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "holds_swept_total",
			Help:      "Expired holds released by the sweeper",
		},
	)

	// RefundCompensations counts refunds issued when a hold was lost after a
	// successful charge. A rising rate means the hold TTL is too short
	// relative to charge latency.
	RefundCompensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "refund_compensations_total",
			Help:      "Refunds issued because seats were lost after charging",
		},
	)
)
