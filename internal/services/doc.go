// Package services owns the application logic between the HTTP transport
// and the cleaning core: session lifecycle, operation dispatch, analytics
// over session snapshots and health reporting. Handlers translate HTTP,
// services decide; WebSocket events are emitted from here.
package services
