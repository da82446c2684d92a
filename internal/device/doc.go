// Package device provides the live light and group registries for lanlight.
//
// Lights is the authoritative set of lights seen on the LAN. Records are
// created on first sighting, refreshed by every message that names them, and
// evicted by RemoveLostLights once they go quiet for longer than the
// staleness window. Groups is a view derived from Lights: one group per tag,
// holding the lights that currently carry that tag.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        device package                        │
//	│                                                              │
//	│  ┌──────────────────┐   LightLost    ┌──────────────────┐    │
//	│  │      Lights      │───────────────▶│      Groups      │    │
//	│  │   (lights.go)    │                │   (groups.go)    │    │
//	│  │                  │◀───────────────│                  │    │
//	│  │ • create/refresh │    Contains    │ • tag membership │    │
//	│  │ • evict stale    │                │ • tag labels     │    │
//	│  │ • initial load   │                │                  │    │
//	│  └──────────────────┘                └──────────────────┘    │
//	│           │ LightFound / LightChanged / LightLost             │
//	└───────────│──────────────────────────────────────────────────┘
//	            ▼
//	   state publisher, sightings journal, telemetry
//
// # Eviction policy
//
// Groups has no staleness clock of its own. Lights notifies its listeners
// after every eviction and Groups drops the evicted light from every group.
// Groups also ignores tag updates for lights that Lights does not hold.
//
// # Usage
//
//	lights := device.NewLights(device.LightsOptions{StaleAfter: 30 * time.Second})
//	groups := device.NewGroups(lights, log)
//
//	lights.HandleMessage(router, sched, targets, msg)
//	groups.HandleMessage(targets, msg)
//
//	lights.RemoveLostLights() // from the refresh timer only
//
// # Thread Safety
//
// Each registry guards its maps with its own RWMutex, held for one mutation
// at a time. Neither registry holds its lock while sending a message or
// calling a listener.
package device
