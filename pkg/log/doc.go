/*
Package log provides structured logging for the message bus, built on
zerolog.

Call Init once at process startup to configure level and output format
(JSON for machines, console for humans), then derive child loggers with
the helpers:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("broker")
	logger.Info().Int("workers", 8).Msg("broker started")

WithTopic and WithSubscription attach the corresponding correlation fields
so schedule/run/error trace events can be filtered per topic or per
subscriber. Before Init is called the global logger is a zero zerolog
logger and discards everything, which keeps library code usable from tests
without logging setup.
*/
package log
