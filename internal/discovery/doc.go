// Package discovery keeps a diagnostic journal of every light sighted.
//
// Journal implements device.Listener. Lifecycle events are queued and
// written to the light_sightings table by a single writer goroutine, so
// SQLite latency never reaches the message path. When the queue is full
// events are dropped and counted rather than blocking.
//
// The journal is write-only history: first and last sighting, how many
// times a light was rediscovered, and when it was last lost. The registries
// never load from it, so restarting the client starts from an empty model.
package discovery
