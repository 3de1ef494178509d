package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_deliveries_total",
		Help: "Messages pushed to a live recipient connection.",
	})

	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_delivery_failures_total",
		Help: "Push attempts that failed; the message stays stored.",
	})
)
