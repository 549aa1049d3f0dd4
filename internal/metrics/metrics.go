package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of orders deleted, by whether stock was restored",
	}, []string{"stock_restored"})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Total number of order status changes",
	}, []string{"to"})

	StockRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Total number of rejected stock movements",
	}, []string{"reason"})

	StockMovementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_movement_latency_seconds",
		Help:    "Latency of atomic stock movements",
		Buckets: prometheus.DefBuckets,
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of products reported below minimum stock",
	})

	DeliveryExceptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_exceptions_total",
		Help: "Total number of delivery exceptions, by reason",
	}, []string{"reason"})

	DeliveryExceptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_exception_transitions_total",
		Help: "Total number of exception resolutions and voids",
	}, []string{"status"})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of customer payments recorded",
	}, []string{"method"})

	BalanceDriftTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_drift_total",
		Help: "Total number of customer balances found out of sync",
	}, []string{"repaired"})

	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_total",
		Help: "Total number of reconciliation transitions",
	}, []string{"status"})

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
