// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// DetectorRequest caps the time allowed for a single milestone-detection
// request to an AI provider.
const DetectorRequest = 30 * time.Second
