// Package api implements the read-only HTTP status API for lanlight.
//
// This package provides:
//   - Light and group snapshots from the coordinator's registries
//   - A readiness probe that waits for the initial load
//   - The sightings journal (when a database is configured)
//   - Health checks and runtime metrics
//   - Middleware stack (request ID, logging, recovery)
//
// # Endpoints
//
//	GET /api/v1/health             component health
//	GET /api/v1/ready?timeout=5s   waits for router, PAN and initial load
//	GET /api/v1/metrics            runtime, registry and router counters
//	GET /api/v1/lights             all lights (?tag=N filters by group)
//	GET /api/v1/lights/{id}        one light with its groups
//	GET /api/v1/groups             all tag groups
//	GET /api/v1/groups/{tag}       one group
//	GET /api/v1/sightings          journal history
//	GET /api/v1/sightings/{id}     one journal entry
//
// The API never sends to the light network; it only reads state.
package api
