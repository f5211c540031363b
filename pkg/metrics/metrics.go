package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections open websocket connections
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "active_connections",
		Help:      "Open chat websocket connections.",
	})

	// MessagesSent confirmed sends by conversation kind
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_sent_total",
		Help:      "Messages confirmed by the store.",
	}, []string{"kind"})

	// SendFailures reverted optimistic sends
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "send_failures_total",
		Help:      "Optimistic sends reverted after an upload or commit failure.",
	})

	// OlderPages load_older requests
	OlderPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "older_pages_total",
		Help:      "Load-older requests handled.",
	})
)

// Handler /metrics endpoint for fiber
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
