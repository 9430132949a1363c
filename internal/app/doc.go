// Package app wires the application together: configuration, logging,
// OpenTelemetry, the session store, the WebSocket hub, services and the
// chi router, plus server lifecycle with graceful shutdown.
package app
