// Package config provides centralized timeout constants for the application.
//
// Chat requests are answered from memory, so the HTTP timeouts only need to
// cover slow clients; the data load timeout covers the one-off read of the
// response table at startup, which may come from object storage.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPReadHeader bounds how long a client may take to send headers.
	HTTPReadHeader = 5 * time.Second

	// HTTPRead is the server read timeout. Chat bodies are small JSON objects.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the server write timeout.
	HTTPWrite = 15 * time.Second

	// HTTPIdle is the idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Data source timeouts
const (
	// DataLoad is the default timeout for reading the data source at startup.
	// Object storage downloads dominate; local files finish in milliseconds.
	DataLoad = 2 * time.Minute
)

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often idle per-client limiters are removed.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Probe timeouts
const (
	// HealthcheckRequest is the timeout used by cmd/healthcheck.
	HealthcheckRequest = 8 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second

	// ErrorReportFlush bounds how long shutdown waits for pending Sentry events.
	ErrorReportFlush = 2 * time.Second
)
