package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_ws_connections",
		Help: "Currently open WebSocket sessions.",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_ws_events_total",
		Help: "Inbound WebSocket events by route.",
	}, []string{"route"})
)
