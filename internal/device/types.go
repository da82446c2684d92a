package device

import (
	"time"

	"github.com/nerrad567/lanlight/internal/protocol"
)

// Light is a snapshot of one light record.
// Values returned by the registry are copies; callers may keep them.
type Light struct {
	ID        protocol.DeviceID `json:"id"`
	Label     string            `json:"label"`
	Power     uint16            `json:"power"`
	Time      time.Time         `json:"time,omitzero"`
	Tags      uint64            `json:"tags"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
}

// IsOn reports whether the light's last known power level is non-zero.
func (l Light) IsOn() bool {
	return l.Power > 0
}

// TagIDs returns the tags the light carries, ascending.
func (l Light) TagIDs() []protocol.TagID {
	return protocol.Unpack(l.Tags)
}

// HasTag reports whether the light carries tag.
func (l Light) HasTag(tag protocol.TagID) bool {
	return l.Tags&tag.Mask() != 0
}

// Group is a snapshot of one tag group.
type Group struct {
	Tag     protocol.TagID      `json:"tag"`
	Label   string              `json:"label"`
	Members []protocol.DeviceID `json:"members"`
}

// Contains reports whether id is a member of the group.
func (g Group) Contains(id protocol.DeviceID) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Listener receives light lifecycle events from Lights.
//
// Callbacks run on the goroutine that caused the event, after the registry
// lock is released. They should return quickly.
type Listener interface {
	// LightFound is called once when a light is first sighted.
	LightFound(light Light)

	// LightChanged is called when a label, power or tag update changes a light.
	// A bare LastSeen advance does not count as a change.
	LightChanged(light Light)

	// LightLost is called once when a light is evicted.
	LightLost(light Light)
}

// Sender dispatches outbound messages. It is satisfied by the router.
type Sender interface {
	SendMessage(msg protocol.Message) error
}

// Scheduler runs a delayed action. It is satisfied by *scheduler.Scheduler.
type Scheduler interface {
	ScheduleOnce(name string, action func(), delay time.Duration) error
}

// Logger defines the logging interface used by the registries.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
