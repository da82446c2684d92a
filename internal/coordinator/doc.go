// Package coordinator binds a Router to the light and group registries.
//
// The Coordinator is the single entry point a client wires up:
//
//	┌──────────┐  HandleMessage   ┌─────────────┐
//	│  Router  │ ───────────────► │ Coordinator │
//	│  (MQTT)  │ ◄─────────────── │             │
//	└──────────┘  SendMessage     └──────┬──────┘
//	                                     │
//	                     ┌───────────────┼───────────────┐
//	                     ▼               ▼               ▼
//	              ┌────────────┐  ┌────────────┐  ┌────────────┐
//	              │   Lights   │─►│   Groups   │  │ Scheduler  │
//	              └────────────┘  └────────────┘  └────────────┘
//
// Inbound messages are dispatched to Lights first and then Groups, so a
// light is always registered before any group references it.
//
// Once opened, the Coordinator's scheduler runs two tasks:
//   - a poll burst shortly after Open and then every PollInterval, which asks
//     every light for its label, power and clock, and every tag for its label
//   - a refresh every RefreshInterval, which evicts lights that went quiet
//
// Readiness is the conjunction of three one-shot milestones: router
// attached, PAN sighted, initial load complete. WaitForLoaded composes them
// under a single deadline.
package coordinator
