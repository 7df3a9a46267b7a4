package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bus metrics
	MessagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbus_messages_published_total",
			Help: "Total number of messages published to the bus",
		},
	)

	PublishRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbus_publish_rate_per_second",
			Help: "Messages published per second over the last collection interval",
		},
	)

	TopicsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbus_topics_total",
			Help: "Total number of topics ever published or subscribed to",
		},
	)

	SubscriptionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbus_subscriptions_total",
			Help: "Number of live subscriptions",
		},
	)

	// Broker metrics
	WorkersAllocated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbus_workers_allocated",
			Help: "Size of the broker worker pool",
		},
	)

	WorkersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbus_workers_busy",
			Help: "Broker workers currently executing a delivery run",
		},
	)

	CallbackFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbus_callback_failures_total",
			Help: "Total number of subscriber callback errors and panics",
		},
	)
)

// publishedCount mirrors MessagesPublished so the rate collector can read
// the current total without scraping the prometheus registry.
var publishedCount atomic.Uint64

func init() {
	// Register all metrics
	prometheus.MustRegister(MessagesPublished)
	prometheus.MustRegister(PublishRate)
	prometheus.MustRegister(TopicsTotal)
	prometheus.MustRegister(SubscriptionsTotal)
	prometheus.MustRegister(WorkersAllocated)
	prometheus.MustRegister(WorkersBusy)
	prometheus.MustRegister(CallbackFailures)
}

// CountPublished records one published message.
func CountPublished() {
	MessagesPublished.Inc()
	publishedCount.Add(1)
}

// PublishedTotal returns the running count of published messages.
func PublishedTotal() uint64 {
	return publishedCount.Load()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
