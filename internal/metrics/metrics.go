package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeAllocated   = "allocated"
	OutcomeSoldOut     = "sold_out"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "storage_unavailable"
	OutcomeAbandoned   = "abandoned"
)

var (
	PurchaseRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_purchase_requests_total",
		Help: "Total number of ticket purchase requests by outcome",
	}, []string{"outcome"})

	PurchaseConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_purchase_conflicts_total",
		Help: "Purchase transactions that found their ticket already taken",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ticket_purchase_queue_depth",
		Help: "Purchase requests waiting behind another request for the same event",
	})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_purchase_notifications_dropped_total",
		Help: "Purchase notifications dropped because the notifier fell behind",
	})

	PurchaseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_purchase_duration_seconds",
		Help:    "Time spent in the purchase transaction once a request leaves the queue",
		Buckets: prometheus.DefBuckets,
	})
)
