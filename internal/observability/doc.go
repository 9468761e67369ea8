// Package observability provides structured logging and Prometheus
// metrics for the RDAP gateway.
//
// Logging is built on zap behind a small Logger interface so that
// packages can depend on the interface and tests can inject a nop
// logger. Metrics are registered once per process through a singleton
// accessor.
package observability
