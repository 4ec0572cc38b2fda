package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SheetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheet_fetches_total",
			Help: "Total number of spreadsheet snapshot fetches",
		},
		[]string{"outcome"},
	)

	ShopLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_lookups_total",
			Help: "Total number of shop identity lookups by match strategy",
		},
		[]string{"strategy"},
	)

	WebhookCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_calls_total",
			Help: "Total number of outbound webhook calls",
		},
		[]string{"webhook", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method", "status"},
	)

	QRPollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qr_poll_attempts",
			Help:    "Attempts taken before a QR code became available",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
	)
)
