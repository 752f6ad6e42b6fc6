package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries received, by result",
		},
		[]string{"result"},
	)

	MessagesNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_messages_normalized_total",
			Help: "Inbound messages normalized, by message type",
		},
		[]string{"type"},
	)

	MessagesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_messages_skipped_total",
			Help: "Webhooks that produced no message, by skip reason",
		},
		[]string{"reason"},
	)

	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Requests made to the WhatsApp Cloud API, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	StoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "message_store_size",
			Help: "Number of messages held in the in-memory store",
		},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_worker_processed_total",
			Help: "Media download jobs processed by workers, by outcome",
		},
		[]string{"outcome"},
	)

	WorkerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_worker_active_goroutines",
			Help: "Number of running media worker goroutines",
		},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_clients_connected",
			Help: "Number of connected live feed clients",
		},
	)

	AMQPPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amqp_published_total",
			Help: "Inbound messages published to RabbitMQ, by result",
		},
		[]string{"result"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "amqp_queue_depth",
			Help: "Current depth of the inbound RabbitMQ queue",
		},
	)
)

var once sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(WebhookEvents)
		prometheus.MustRegister(MessagesNormalized)
		prometheus.MustRegister(MessagesSkipped)
		prometheus.MustRegister(ProviderRequests)
		prometheus.MustRegister(StoreSize)
		prometheus.MustRegister(WorkerProcessed)
		prometheus.MustRegister(WorkerActive)
		prometheus.MustRegister(StreamClients)
		prometheus.MustRegister(AMQPPublished)
		prometheus.MustRegister(QueueDepth)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
