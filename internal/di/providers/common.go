// Package providers contains dependency injection providers for the
// Spark server.
package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown.
	shutdownTimeout = 30 * time.Second
)
