/*
Package metrics provides Prometheus metrics and health checking for the
message bus.

All collectors are package-level variables registered in init(), so any
package can record observations without wiring a registry through the
call graph. The HTTP surface is exposed by the serve command.

# Metrics

Bus throughput:

	signalbus_messages_published_total  counter  messages accepted by Publish
	signalbus_publish_rate_per_second   gauge    rate over the collection interval
	signalbus_topics_total              gauge    topics ever created
	signalbus_subscriptions_total       gauge    live subscriptions

Broker pool occupancy:

	signalbus_workers_allocated         gauge    pool size
	signalbus_workers_busy              gauge    workers in a delivery run
	signalbus_callback_failures_total   counter  subscriber errors and panics

# Usage

Recording:

	metrics.CountPublished()
	metrics.WorkersBusy.Inc()
	defer metrics.WorkersBusy.Dec()

Exposing:

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

Rate collection:

	collector := metrics.NewCollector(15 * time.Second)
	collector.Start()
	defer collector.Stop()

# Health Checking

Components register themselves and update their status as conditions
change:

	metrics.RegisterComponent("broker", true, "running")
	metrics.UpdateComponent("broker", false, "worker pool exhausted")

GetHealth aggregates every registered component; GetReadiness checks only
the critical set (the broker) so a deployment can gate traffic on it.

# See Also

  - pkg/messagebus for the instrumented code paths
  - cmd/signalbus for the HTTP endpoints
*/
package metrics
