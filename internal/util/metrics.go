package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersBookedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_booked_total",
		Help: "Total number of bookings created",
	})

	OrdersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_settled_total",
		Help: "Total number of orders fully paid and settled",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed booking attempts",
	}, []string{"reason"})

	PaymentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of ledger payments created",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of ledger payments confirmed",
	})

	PaymentsMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_merged_total",
		Help: "Total number of merge operations on the ledger",
	})

	PaymentsSplitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_split_total",
		Help: "Total number of split operations on the ledger",
	})

	SplitMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_split_mismatch_total",
		Help: "Total number of splits whose parts did not sum to the original",
	})

	DiscountResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_resolutions_total",
		Help: "Total number of discount resolutions by outcome",
	}, []string{"outcome"})

	SummaryRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_summary_rebuilds_total",
		Help: "Total number of order summary cache refreshes",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
